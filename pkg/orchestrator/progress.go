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

package orchestrator

import (
	"fmt"

	"github.com/mvidigueira/hotstuff-bench/pkg/config"
	log "github.com/sirupsen/logrus"
	"gopkg.in/cheggaaa/pb.v1"
)

// progress shows the runs of a sweep on a bar when the log level hides
// informational messages.
type progress struct {
	bar   *pb.ProgressBar
	total int
	done  int
}

func newProgress(total int) *progress {
	p := &progress{total: total}
	if total > 0 && log.GetLevel() <= log.WarnLevel {
		p.bar = pb.StartNew(total)
		p.bar.ShowCounters = false
		p.bar.ShowTimeLeft = true
	}
	return p
}

func (p *progress) start(cfg config.ExperimentConfig, run int) {
	if p.bar == nil {
		return
	}
	p.bar.Prefix(fmt.Sprintf("[%02d / %02d] %s, run %d ", p.done+1, p.total, cfg, run+1))
	// Prefix is shown on the next refresh otherwise.
	p.bar.AlwaysUpdate = true
	p.bar.Update()
	p.bar.AlwaysUpdate = false
}

func (p *progress) advance(runs int) {
	p.done += runs
	if p.bar != nil {
		p.bar.Add(runs)
	}
}

func (p *progress) finish() {
	if p.bar != nil {
		p.bar.Finish()
	}
}
