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
	"strings"
	"testing"

	"github.com/mvidigueira/hotstuff-bench/pkg/metrics"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

type recorder struct {
	statements []string
	values     [][]interface{}
	fail       bool
}

func (r *recorder) exec(statement string, values ...interface{}) error {
	if r.fail {
		return errors.New("unavailable")
	}
	r.statements = append(r.statements, statement)
	r.values = append(r.values, values)
	return nil
}

func TestCassandra(t *testing.T) {
	Convey("When creating Cassandra uploader", t, func() {
		r := &recorder{}
		uploader, err := newCassandra("bench", r.exec, nil)
		So(err, ShouldBeNil)

		Convey("Keyspace and table are created", func() {
			So(r.statements, ShouldHaveLength, 2)
			So(r.statements[0], ShouldStartWith, "CREATE KEYSPACE IF NOT EXISTS bench")
			So(r.statements[1], ShouldContainSubstring, "bench.runs")
		})

		Convey("Run metrics are inserted with their tags", func() {
			bench := metrics.New(metrics.Tags{SweepID: "sweep", Configuration: 1, Run: 2},
				metrics.Metadata{Replicas: 4, TPS: 1000})
			So(uploader.SendMetrics(*bench), ShouldBeNil)

			So(r.statements, ShouldHaveLength, 3)
			So(strings.TrimSpace(r.statements[2]), ShouldStartWith, "INSERT INTO bench.runs")
			So(r.values[2][:3], ShouldResemble, []interface{}{"sweep", 1, 2})
			So(r.values[2][4], ShouldEqual, 4)
			So(r.values[2], ShouldHaveLength, 20)
			uploader.Close()
		})
	})

	Convey("Unavailable database fails", t, func() {
		_, err := newCassandra("bench", (&recorder{fail: true}).exec, nil)
		So(err, ShouldNotBeNil)
	})
}
