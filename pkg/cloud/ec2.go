// Copyright (c) 2017 Intel Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cloud

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"github.com/mvidigueira/hotstuff-bench/pkg/allocator"
	"github.com/mvidigueira/hotstuff-bench/pkg/commands"
	"github.com/mvidigueira/hotstuff-bench/pkg/config"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// Canonical publishes the Ubuntu images.
	ubuntuOwner = "099720109477"
	ubuntuImage = "ubuntu/images/hvm-ssd/ubuntu-focal-20.04-amd64-server-*"

	volumeSize   = 200
	volumeDevice = "/dev/sda1"

	duplicateGroup = "InvalidGroup.Duplicate"
)

// EC2API is the subset of the EC2 client used by EC2Manager.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	RunInstances(ctx context.Context, params *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error)
	StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
	DescribeImages(ctx context.Context, params *ec2.DescribeImagesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeImagesOutput, error)
	CreateSecurityGroup(ctx context.Context, params *ec2.CreateSecurityGroupInput, optFns ...func(*ec2.Options)) (*ec2.CreateSecurityGroupOutput, error)
	AuthorizeSecurityGroupIngress(ctx context.Context, params *ec2.AuthorizeSecurityGroupIngressInput, optFns ...func(*ec2.Options)) (*ec2.AuthorizeSecurityGroupIngressOutput, error)
}

// EC2Manager manages testbed instances tagged with the testbed name in every
// configured region.
type EC2Manager struct {
	settings *config.Settings
	clients  map[string]EC2API
}

// NewEC2Manager creates one EC2 client per region of settings from the default
// credential chain.
func NewEC2Manager(ctx context.Context, settings *config.Settings) (*EC2Manager, error) {
	clients := map[string]EC2API{}
	for _, region := range settings.Regions() {
		cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
		if err != nil {
			return nil, errors.Wrapf(err, "cannot load AWS configuration for %s", region)
		}
		clients[region] = ec2.NewFromConfig(cfg)
	}
	return NewEC2ManagerWithClients(settings, clients), nil
}

// NewEC2ManagerWithClients returns manager using given client per region.
func NewEC2ManagerWithClients(settings *config.Settings, clients map[string]EC2API) *EC2Manager {
	return &EC2Manager{settings: settings, clients: clients}
}

func (m *EC2Manager) client(region string) (EC2API, error) {
	client, ok := m.clients[region]
	if !ok {
		return nil, errors.Errorf("region %q is not configured in settings", region)
	}
	return client, nil
}

func (m *EC2Manager) describe(ctx context.Context, region string, states ...string) ([]types.Instance, error) {
	client, err := m.client(region)
	if err != nil {
		return nil, err
	}

	input := &ec2.DescribeInstancesInput{
		Filters: []types.Filter{
			{Name: aws.String("tag:Name"), Values: []string{m.settings.Testbed}},
			{Name: aws.String("instance-state-name"), Values: states},
		},
	}
	var instances []types.Instance
	for {
		output, err := client.DescribeInstances(ctx, input)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot describe instances in %s", region)
		}
		for _, reservation := range output.Reservations {
			instances = append(instances, reservation.Instances...)
		}
		if output.NextToken == nil {
			return instances, nil
		}
		input.NextToken = output.NextToken
	}
}

func (m *EC2Manager) regions() []string {
	regions := make([]string, 0, len(m.clients))
	for region := range m.clients {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions
}

func instanceIDs(instances []types.Instance) []string {
	ids := make([]string, 0, len(instances))
	for _, instance := range instances {
		ids = append(ids, aws.ToString(instance.InstanceId))
	}
	return ids
}

// Hosts returns public addresses of running instances.
func (m *EC2Manager) Hosts(ctx context.Context) (allocator.HostPool, error) {
	pool := allocator.HostPool{}
	for _, region := range m.regions() {
		instances, err := m.describe(ctx, region, StateRunning)
		if err != nil {
			return nil, err
		}
		for _, instance := range instances {
			if ip := aws.ToString(instance.PublicIpAddress); ip != "" {
				pool[region] = append(pool[region], ip)
			}
		}
	}
	return pool, nil
}

func (m *EC2Manager) ensureSecurityGroup(ctx context.Context, client EC2API) error {
	_, err := client.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:   aws.String(m.settings.Testbed),
		Description: aws.String("Benchmark testbed"),
	})
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == duplicateGroup {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "cannot create security group")
	}

	anywhere := []types.IpRange{{CidrIp: aws.String("0.0.0.0/0")}}
	_, err = client.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
		GroupName: aws.String(m.settings.Testbed),
		IpPermissions: []types.IpPermission{
			// SSH.
			{IpProtocol: aws.String("tcp"), FromPort: aws.Int32(22), ToPort: aws.Int32(22), IpRanges: anywhere},
			// Rendezvous and every role.
			{IpProtocol: aws.String("tcp"), FromPort: aws.Int32(commands.RendezvousPort), ToPort: aws.Int32(65535), IpRanges: anywhere},
		},
	})
	return errors.Wrap(err, "cannot open security group ports")
}

func latestImage(ctx context.Context, client EC2API) (string, error) {
	output, err := client.DescribeImages(ctx, &ec2.DescribeImagesInput{
		Owners:  []string{ubuntuOwner},
		Filters: []types.Filter{{Name: aws.String("name"), Values: []string{ubuntuImage}}},
	})
	if err != nil {
		return "", errors.Wrap(err, "cannot describe images")
	}
	if len(output.Images) == 0 {
		return "", errors.Errorf("no image matches %s", ubuntuImage)
	}

	images := output.Images
	sort.Slice(images, func(i, j int) bool {
		return aws.ToString(images[i].CreationDate) > aws.ToString(images[j].CreationDate)
	})
	return aws.ToString(images[0].ImageId), nil
}

// Create launches instances in every region of counts.
func (m *EC2Manager) Create(ctx context.Context, counts config.RegionCounts) error {
	for _, region := range counts.Regions() {
		count := counts[region]
		if count <= 0 {
			continue
		}
		client, err := m.client(region)
		if err != nil {
			return err
		}
		if err := m.ensureSecurityGroup(ctx, client); err != nil {
			return errors.Wrapf(err, "in %s", region)
		}
		image, err := latestImage(ctx, client)
		if err != nil {
			return errors.Wrapf(err, "in %s", region)
		}

		_, err = client.RunInstances(ctx, &ec2.RunInstancesInput{
			ImageId:        aws.String(image),
			InstanceType:   types.InstanceType(m.settings.Instances.Type),
			KeyName:        aws.String(m.settings.Key.Name),
			MinCount:       aws.Int32(int32(count)),
			MaxCount:       aws.Int32(int32(count)),
			SecurityGroups: []string{m.settings.Testbed},
			EbsOptimized:   aws.Bool(true),
			TagSpecifications: []types.TagSpecification{{
				ResourceType: types.ResourceTypeInstance,
				Tags:         []types.Tag{{Key: aws.String("Name"), Value: aws.String(m.settings.Testbed)}},
			}},
			BlockDeviceMappings: []types.BlockDeviceMapping{{
				DeviceName: aws.String(volumeDevice),
				Ebs: &types.EbsBlockDevice{
					VolumeType:          types.VolumeTypeGp2,
					VolumeSize:          aws.Int32(volumeSize),
					DeleteOnTermination: aws.Bool(true),
				},
			}},
		})
		if err != nil {
			return errors.Wrapf(err, "cannot run %d instances in %s", count, region)
		}
		log.Infof("Created %d instances in %s", count, region)
	}
	return nil
}

// Start starts at most max stopped instances per region.
func (m *EC2Manager) Start(ctx context.Context, max int) error {
	for _, region := range m.regions() {
		stopped, err := m.describe(ctx, region, StateStopping, StateStopped)
		if err != nil {
			return err
		}
		ids := instanceIDs(stopped)
		if len(ids) > max {
			ids = ids[:max]
		}
		if len(ids) == 0 {
			continue
		}
		client, _ := m.client(region)
		if _, err := client.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: ids}); err != nil {
			return errors.Wrapf(err, "cannot start instances in %s", region)
		}
		log.Infof("Starting %d instances in %s", len(ids), region)
	}
	return nil
}

// Stop stops every running instance.
func (m *EC2Manager) Stop(ctx context.Context) error {
	for _, region := range m.regions() {
		running, err := m.describe(ctx, region, StatePending, StateRunning)
		if err != nil {
			return err
		}
		if len(running) == 0 {
			continue
		}
		client, _ := m.client(region)
		if _, err := client.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: instanceIDs(running)}); err != nil {
			return errors.Wrapf(err, "cannot stop instances in %s", region)
		}
		log.Infof("Stopping %d instances in %s", len(running), region)
	}
	return nil
}

// Terminate destroys every instance of the testbed.
func (m *EC2Manager) Terminate(ctx context.Context) error {
	for _, region := range m.regions() {
		alive, err := m.describe(ctx, region, StatePending, StateRunning, StateStopping, StateStopped)
		if err != nil {
			return err
		}
		if len(alive) == 0 {
			continue
		}
		client, _ := m.client(region)
		if _, err := client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: instanceIDs(alive)}); err != nil {
			return errors.Wrapf(err, "cannot terminate instances in %s", region)
		}
		log.Infof("Terminating %d instances in %s", len(alive), region)
	}
	return nil
}

// Instances lists instances which are not terminated.
func (m *EC2Manager) Instances(ctx context.Context) ([]Instance, error) {
	var instances []Instance
	for _, region := range m.regions() {
		described, err := m.describe(ctx, region, StatePending, StateRunning, StateStopping, StateStopped)
		if err != nil {
			return nil, err
		}
		for _, instance := range described {
			state := ""
			if instance.State != nil {
				state = string(instance.State.Name)
			}
			instances = append(instances, Instance{
				ID:       aws.ToString(instance.InstanceId),
				Region:   region,
				State:    state,
				PublicIP: aws.ToString(instance.PublicIpAddress),
			})
		}
	}
	return instances, nil
}

func sortedRegions(hosts map[string][]string) []string {
	regions := make([]string, 0, len(hosts))
	for region := range hosts {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions
}
