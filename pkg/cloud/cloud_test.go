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
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"github.com/mvidigueira/hotstuff-bench/pkg/allocator"
	"github.com/mvidigueira/hotstuff-bench/pkg/config"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeEC2 keeps instances in memory. Every call is recorded by operation name.
type fakeEC2 struct {
	instances   []types.Instance
	groupExists bool
	calls       []string
	started     []string
	stopped     []string
	terminated  []string
	run         *ec2.RunInstancesInput
}

func (f *fakeEC2) DescribeInstances(_ context.Context, input *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	f.calls = append(f.calls, "DescribeInstances")
	states := map[string]bool{}
	for _, filter := range input.Filters {
		if aws.ToString(filter.Name) == "instance-state-name" {
			for _, state := range filter.Values {
				states[state] = true
			}
		}
	}
	var matching []types.Instance
	for _, instance := range f.instances {
		if states[string(instance.State.Name)] {
			matching = append(matching, instance)
		}
	}
	// Two pages exercise pagination.
	if input.NextToken == nil && len(matching) > 1 {
		return &ec2.DescribeInstancesOutput{
			Reservations: []types.Reservation{{Instances: matching[:1]}},
			NextToken:    aws.String("next"),
		}, nil
	}
	if input.NextToken != nil {
		matching = matching[1:]
	}
	return &ec2.DescribeInstancesOutput{Reservations: []types.Reservation{{Instances: matching}}}, nil
}

func (f *fakeEC2) RunInstances(_ context.Context, input *ec2.RunInstancesInput, _ ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error) {
	f.calls = append(f.calls, "RunInstances")
	f.run = input
	return &ec2.RunInstancesOutput{}, nil
}

func (f *fakeEC2) StartInstances(_ context.Context, input *ec2.StartInstancesInput, _ ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error) {
	f.started = append(f.started, input.InstanceIds...)
	return &ec2.StartInstancesOutput{}, nil
}

func (f *fakeEC2) StopInstances(_ context.Context, input *ec2.StopInstancesInput, _ ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error) {
	f.stopped = append(f.stopped, input.InstanceIds...)
	return &ec2.StopInstancesOutput{}, nil
}

func (f *fakeEC2) TerminateInstances(_ context.Context, input *ec2.TerminateInstancesInput, _ ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error) {
	f.terminated = append(f.terminated, input.InstanceIds...)
	return &ec2.TerminateInstancesOutput{}, nil
}

func (f *fakeEC2) DescribeImages(context.Context, *ec2.DescribeImagesInput, ...func(*ec2.Options)) (*ec2.DescribeImagesOutput, error) {
	return &ec2.DescribeImagesOutput{Images: []types.Image{
		{ImageId: aws.String("ami-old"), CreationDate: aws.String("2021-01-01T00:00:00.000Z")},
		{ImageId: aws.String("ami-new"), CreationDate: aws.String("2022-01-01T00:00:00.000Z")},
	}}, nil
}

func (f *fakeEC2) CreateSecurityGroup(context.Context, *ec2.CreateSecurityGroupInput, ...func(*ec2.Options)) (*ec2.CreateSecurityGroupOutput, error) {
	f.calls = append(f.calls, "CreateSecurityGroup")
	if f.groupExists {
		return nil, &smithy.GenericAPIError{Code: duplicateGroup, Message: "exists"}
	}
	return &ec2.CreateSecurityGroupOutput{}, nil
}

func (f *fakeEC2) AuthorizeSecurityGroupIngress(context.Context, *ec2.AuthorizeSecurityGroupIngressInput, ...func(*ec2.Options)) (*ec2.AuthorizeSecurityGroupIngressOutput, error) {
	f.calls = append(f.calls, "AuthorizeSecurityGroupIngress")
	return &ec2.AuthorizeSecurityGroupIngressOutput{}, nil
}

func instance(id, ip string, state types.InstanceStateName) types.Instance {
	return types.Instance{
		InstanceId:      aws.String(id),
		PublicIpAddress: aws.String(ip),
		State:           &types.InstanceState{Name: state},
	}
}

func testSettings() *config.Settings {
	settings := &config.Settings{Testbed: "bench"}
	settings.Key.Name = "aws"
	settings.Instances.Type = "m5.large"
	return settings
}

func TestEC2Manager(t *testing.T) {
	ctx := context.Background()

	Convey("With EC2 manager over two regions", t, func() {
		east := &fakeEC2{instances: []types.Instance{
			instance("i-1", "3.0.0.1", types.InstanceStateNameRunning),
			instance("i-2", "3.0.0.2", types.InstanceStateNameRunning),
			instance("i-3", "", types.InstanceStateNameStopped),
		}}
		north := &fakeEC2{groupExists: true, instances: []types.Instance{
			instance("i-4", "", types.InstanceStateNameStopped),
			instance("i-5", "", types.InstanceStateNameStopped),
		}}
		manager := NewEC2ManagerWithClients(testSettings(), map[string]EC2API{"us-east-1": east, "eu-north-1": north})

		Convey("Hosts lists running instances across pages", func() {
			hosts, err := manager.Hosts(ctx)
			So(err, ShouldBeNil)
			So(hosts, ShouldResemble, allocator.HostPool{"us-east-1": {"3.0.0.1", "3.0.0.2"}})
		})

		Convey("Start starts at most max stopped instances per region", func() {
			So(manager.Start(ctx, 1), ShouldBeNil)
			So(east.started, ShouldResemble, []string{"i-3"})
			So(north.started, ShouldResemble, []string{"i-4"})
		})

		Convey("Stop and terminate reach every region", func() {
			So(manager.Stop(ctx), ShouldBeNil)
			So(east.stopped, ShouldResemble, []string{"i-1", "i-2"})
			So(north.stopped, ShouldBeEmpty)

			So(manager.Terminate(ctx), ShouldBeNil)
			So(east.terminated, ShouldHaveLength, 3)
			So(north.terminated, ShouldResemble, []string{"i-4", "i-5"})
		})

		Convey("Create opens ports once and launches tagged instances", func() {
			err := manager.Create(ctx, config.RegionCounts{"us-east-1": 2, "eu-north-1": 1})
			So(err, ShouldBeNil)

			So(east.calls, ShouldContain, "AuthorizeSecurityGroupIngress")
			So(north.calls, ShouldNotContain, "AuthorizeSecurityGroupIngress")
			So(aws.ToInt32(east.run.MinCount), ShouldEqual, 2)
			So(aws.ToString(east.run.ImageId), ShouldEqual, "ami-new")
			So(east.run.InstanceType, ShouldEqual, types.InstanceType("m5.large"))
			So(aws.ToString(east.run.TagSpecifications[0].Tags[0].Value), ShouldEqual, "bench")
			So(aws.ToInt32(north.run.MaxCount), ShouldEqual, 1)
		})

		Convey("Create fails in unknown region", func() {
			So(manager.Create(ctx, config.RegionCounts{"ap-east-1": 1}), ShouldNotBeNil)
		})

		Convey("Instances lists every state", func() {
			instances, err := manager.Instances(ctx)
			So(err, ShouldBeNil)
			So(instances, ShouldHaveLength, 5)
			So(instances[0].Region, ShouldEqual, "eu-north-1")
			So(instances[0].State, ShouldEqual, StateStopped)

			table := InstancesTable(instances, "ubuntu", "~/.ssh/aws.pem")
			So(table.Len(), ShouldEqual, 5)
		})
	})
}

func TestStaticManager(t *testing.T) {
	ctx := context.Background()

	Convey("With static hosts", t, func() {
		manager := NewStaticManager(map[string][]string{"lab": {"10.0.0.1", "10.0.0.2"}})

		Convey("Hosts are the configured ones", func() {
			hosts, err := manager.Hosts(ctx)
			So(err, ShouldBeNil)
			So(hosts["lab"], ShouldResemble, []string{"10.0.0.1", "10.0.0.2"})
		})

		Convey("Instances are always running", func() {
			instances, err := manager.Instances(ctx)
			So(err, ShouldBeNil)
			So(instances, ShouldHaveLength, 2)
			So(instances[1].State, ShouldEqual, StateRunning)
		})

		Convey("Instances cannot be created or terminated", func() {
			So(manager.Create(ctx, config.RegionCounts{"lab": 1}), ShouldNotBeNil)
			So(manager.Terminate(ctx), ShouldNotBeNil)
			So(manager.Start(ctx, 8), ShouldBeNil)
			So(manager.Stop(ctx), ShouldBeNil)
		})
	})

	Convey("Settings with hosts give a static manager", t, func() {
		settings := testSettings()
		settings.Hosts = map[string][]string{"lab": {"10.0.0.1"}}
		manager, err := NewInstanceManager(ctx, settings)
		So(err, ShouldBeNil)
		_, ok := manager.(*StaticManager)
		So(ok, ShouldBeTrue)
	})
}
