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

package schemascan

import (
	"bytes"
	"sort"

	"github.com/JWXFD2023/doris/pkg/common/moerr"
	"github.com/JWXFD2023/doris/pkg/container/batch"
	"github.com/JWXFD2023/doris/pkg/container/types"
	"github.com/JWXFD2023/doris/pkg/container/vector"
	"github.com/JWXFD2023/doris/pkg/vm"
	"github.com/JWXFD2023/doris/pkg/vm/process"
)

const (
	ScopeSession = "SESSION"
	ScopeGlobal  = "GLOBAL"
)

// VariablesHelper supplies the variable map for a scope. The default
// helper reads the session attached to the process.
type VariablesHelper interface {
	ShowVariables(proc *process.Process, scope string) (map[string]string, error)
}

type sessionHelper struct{}

func (sessionHelper) ShowVariables(proc *process.Process, scope string) (map[string]string, error) {
	if scope == ScopeGlobal {
		return proc.SessionInfo.GlobalVariables, nil
	}
	return proc.SessionInfo.SessionVariables, nil
}

// VariablesScanner emits the session or global variables as a two
// varchar column relation, sorted by name, in a single batch.
type VariablesScanner struct {
	Scope  string
	Helper VariablesHelper

	names  []string
	values map[string]string
	inited bool
	done   bool
}

func (n *VariablesScanner) String(buf *bytes.Buffer) {
	buf.WriteString("variables_scan(")
	buf.WriteString(n.Scope)
	buf.WriteString(")")
}

func (n *VariablesScanner) Open(proc *process.Process) error {
	helper := n.Helper
	if helper == nil {
		helper = sessionHelper{}
	}
	vars, err := helper.ShowVariables(proc, n.Scope)
	if err != nil {
		return err
	}
	n.values = vars
	n.names = make([]string, 0, len(vars))
	for name := range vars {
		n.names = append(n.names, name)
	}
	sort.Strings(n.names)
	n.inited = true
	n.done = false
	return nil
}

func (n *VariablesScanner) Pull(proc *process.Process, bat *batch.Batch, eos *bool) error {
	if !n.inited {
		return moerr.NewInternalError(proc.Ctx, "call this before initial.")
	}
	if bat == nil || eos == nil {
		return moerr.NewInvalidInput(proc.Ctx, "invalid parameter.")
	}
	bat.CleanOnlyData()
	*eos = true
	if n.done {
		return nil
	}
	mp := proc.Mp()
	nameVec, valueVec := bat.GetVector(0), bat.GetVector(1)
	for _, name := range n.names {
		if err := vector.AppendString(nameVec, name, false, mp); err != nil {
			return err
		}
		if err := vector.AppendString(valueVec, n.values[name], false, mp); err != nil {
			return err
		}
	}
	bat.SetRowCount(len(n.names))
	n.done = true
	return nil
}

func (n *VariablesScanner) Close(proc *process.Process) error {
	n.inited = false
	n.names, n.values = nil, nil
	return nil
}

func (n *VariablesScanner) RowDesc() vm.RowDesc {
	return vm.RowDesc{
		Attrs: []string{"VARIABLE_NAME", "VARIABLE_VALUE"},
		Types: []types.Type{types.New(types.T_varchar), types.New(types.T_varchar)},
	}
}
