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

package uploaders

import (
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/mvidigueira/hotstuff-bench/pkg/metrics"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const runTable = "runs"

// Config stores Cassandra database configuration
type Config struct {
	Username string
	Password string
	Host     []string
	Port     int
	KeySpace string
	Timeout  time.Duration
}

// execFunc runs one CQL statement.
type execFunc func(statement string, values ...interface{}) error

type cassandra struct {
	keySpace string
	exec     execFunc
	close    func()
}

// NewCassandra creates keyspace and table when missing and returns Cassandra Uploader.
func NewCassandra(config Config) (metrics.Uploader, error) {
	cluster := gocql.NewCluster(config.Host...)
	cluster.ProtoVersion = 4
	if config.Port > 0 {
		cluster.Port = config.Port
	}
	if config.Timeout > 0 {
		cluster.Timeout = config.Timeout
	}
	if config.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: config.Username,
			Password: config.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, errors.Wrap(err, "creating gocql session failed")
	}
	exec := func(statement string, values ...interface{}) error {
		return session.Query(statement, values...).Exec()
	}
	uploader, err := newCassandra(config.KeySpace, exec, session.Close)
	if err != nil {
		session.Close()
		return nil, err
	}
	return uploader, nil
}

func newCassandra(keySpace string, exec execFunc, closeSession func()) (*cassandra, error) {
	c := &cassandra{keySpace: keySpace, exec: exec, close: closeSession}
	for _, statement := range c.schema() {
		if err := exec(statement); err != nil {
			return nil, errors.Wrapf(err, "creating schema in keyspace %s failed", keySpace)
		}
	}
	return c, nil
}

func (c *cassandra) schema() []string {
	return []string{
		fmt.Sprintf(`CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`, c.keySpace),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			sweep_id text,
			configuration int,
			run int,
			time timestamp,
			replicas int,
			fast_brokers int,
			full_brokers int,
			clients int,
			faults int,
			rate int,
			duration bigint,
			tps int,
			broker_ops int,
			client_ops int,
			signup_tps int,
			latency_mean int,
			latency_stdev int,
			latency_p50 int,
			latency_p99 int,
			report text,
			PRIMARY KEY ((sweep_id), configuration, run)
		)`, c.keySpace, runTable),
	}
}

// SendMetrics implements metrics.Uploader interface
func (c *cassandra) SendMetrics(bench metrics.Bench) error {
	m := bench.Metrics
	statement := fmt.Sprintf(`INSERT INTO %s.%s (sweep_id, configuration, run, time,
		replicas, fast_brokers, full_brokers, clients, faults, rate, duration,
		tps, broker_ops, client_ops, signup_tps,
		latency_mean, latency_stdev, latency_p50, latency_p99, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, c.keySpace, runTable)

	err := c.exec(statement,
		bench.Tags.SweepID, bench.Tags.Configuration, bench.Tags.Run, time.Now(),
		m.Replicas, m.FastBrokers, m.FullBrokers, m.Clients, m.Faults, m.Rate, int64(m.Duration),
		m.TPS, m.BrokerOPS, m.ClientOPS, m.SignupTPS,
		m.LatencyMean, m.LatencyStdev, m.LatencyP50, m.LatencyP99, m.Report)
	if err != nil {
		return errors.Wrap(err, "run metrics saving failed")
	}
	log.Debugf("Uploaded metrics of run %d of configuration %d", bench.Tags.Run, bench.Tags.Configuration)
	return nil
}

// Close releases the session.
func (c *cassandra) Close() {
	if c.close != nil {
		c.close()
	}
}
