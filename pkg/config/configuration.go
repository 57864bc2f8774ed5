// Copyright 2023 JWXFD2023
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

package config

import (
	"context"
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/JWXFD2023/doris/pkg/common/moerr"
)

const (
	// PushPolicyReject makes a full queue reject the push; the producing
	// task re-expresses it as a blocked state instead of pinning a worker.
	PushPolicyReject = "reject"
	// PushPolicyBlock makes a full queue block the pushing goroutine.
	// Only safe for the legacy mode where a goroutine owns the producer.
	PushPolicyBlock = "block"
)

// EngineParameters of the execution engine
type EngineParameters struct {
	//number of scheduler workers. default: runtime.NumCPU()
	WorkerCount int64 `toml:"workerCount"`

	//max ready batches buffered per block queue. default: 16
	QueueCapacity int64 `toml:"queueCapacity"`

	//behavior of a push into a full queue: "reject" or "block". default: "reject"
	QueuePushPolicy string `toml:"queuePushPolicy"`

	//max rows for a batch. default: 8192
	BatchRows int64 `toml:"batchRows"`

	//interval in milliseconds between readiness probes of blocked tasks. default: 1
	PollIntervalMS int64 `toml:"pollIntervalMS"`

	//memory pool cap in bytes, 0 means unlimited. default: 0
	MempoolMaxSize int64 `toml:"mempoolMaxSize"`

	//log level: debug, info, warn, error. default: info
	LogLevel string `toml:"logLevel"`

	//log file, empty writes to stderr
	LogFilename string `toml:"logFilename"`

	//max size in MB before the log file is rotated. default: 512
	LogMaxSize int64 `toml:"logMaxSize"`

	//number of rotated log files kept. default: 10
	LogMaxBackups int64 `toml:"logMaxBackups"`
}

func (ep *EngineParameters) SetDefaultValues() {
	if ep.WorkerCount <= 0 {
		ep.WorkerCount = int64(runtime.NumCPU())
	}
	if ep.QueueCapacity <= 0 {
		ep.QueueCapacity = 16
	}
	if ep.QueuePushPolicy == "" {
		ep.QueuePushPolicy = PushPolicyReject
	}
	if ep.BatchRows <= 0 {
		ep.BatchRows = 8192
	}
	if ep.PollIntervalMS <= 0 {
		ep.PollIntervalMS = 1
	}
	if ep.LogLevel == "" {
		ep.LogLevel = "info"
	}
	if ep.LogMaxSize <= 0 {
		ep.LogMaxSize = 512
	}
	if ep.LogMaxBackups <= 0 {
		ep.LogMaxBackups = 10
	}
}

func (ep *EngineParameters) Validate() error {
	switch ep.QueuePushPolicy {
	case PushPolicyReject, PushPolicyBlock:
	default:
		return moerr.NewBadConfig(context.TODO(), "unknown queue push policy %s", ep.QueuePushPolicy)
	}
	switch ep.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return moerr.NewBadConfig(context.TODO(), "unknown log level %s", ep.LogLevel)
	}
	return nil
}

// LoadEngineConfig reads parameters from a TOML file, fills defaults and
// validates. An empty path returns defaults.
func LoadEngineConfig(path string) (*EngineParameters, error) {
	ep := &EngineParameters{}
	if path != "" {
		if _, err := toml.DecodeFile(path, ep); err != nil {
			return nil, moerr.NewBadConfig(context.TODO(), "decode %s: %v", path, err)
		}
	}
	ep.SetDefaultValues()
	if err := ep.Validate(); err != nil {
		return nil, err
	}
	return ep, nil
}
