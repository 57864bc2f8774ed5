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

package process

import (
	"context"

	"github.com/JWXFD2023/doris/pkg/common/mpool"
)

const DefaultBatchRows = 8192

// Limitation caps the resources one query may take.
type Limitation struct {
	// memory threshold in bytes
	Size int64
	// max rows for batch
	BatchRows int64
	// max size for batch
	BatchSize int64
}

// SessionInfo carries the client session the query runs under.
type SessionInfo struct {
	User     string
	Account  string
	TimeZone string

	// session-scoped variables, read by the variables scanner
	SessionVariables map[string]string
	// instance-wide variables
	GlobalVariables map[string]string
}

// Process is the per-query runtime state handed to every operator and
// exec node. One query has one Process per pipeline; pipelines of the
// same fragment share Ctx and the memory pool. The core consumes it,
// the session layer owns it.
type Process struct {
	Id  string
	Ctx context.Context
	// Cancel tears down every pipeline bound to Ctx.
	Cancel context.CancelFunc

	Lim         Limitation
	SessionInfo SessionInfo

	mp *mpool.MPool

	// per-operator instrumentation, indexed by operator analyze id
	AnalInfos []*AnalyzeInfo
}
