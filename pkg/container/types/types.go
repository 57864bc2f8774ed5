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

package types

import "fmt"

type T uint8

const (
	T_any T = iota

	T_bool
	T_int32
	T_int64
	T_float64

	T_varchar
)

// Type describes one column. Width/Scale only matter for types that
// carry them; the execution engine treats Type as an opaque tag plus a
// fixed element size.
type Type struct {
	Oid   T
	Width int32
	Scale int32
}

func New(oid T) Type {
	return Type{Oid: oid}
}

func (t T) ToType() Type {
	return Type{Oid: t}
}

// TypeSize returns the byte width of one fixed-length element. Varlen
// types are stored out of line and report the size of their descriptor.
func (t Type) TypeSize() int {
	switch t.Oid {
	case T_bool:
		return 1
	case T_int32:
		return 4
	case T_int64, T_float64:
		return 8
	case T_varchar:
		return 16
	}
	return 0
}

func (t Type) IsFixedLen() bool {
	return t.Oid != T_varchar && t.Oid != T_any
}

func (t Type) IsVarlen() bool {
	return t.Oid == T_varchar
}

func (t Type) String() string {
	switch t.Oid {
	case T_any:
		return "ANY"
	case T_bool:
		return "BOOL"
	case T_int32:
		return "INT"
	case T_int64:
		return "BIGINT"
	case T_float64:
		return "DOUBLE"
	case T_varchar:
		return "VARCHAR"
	}
	return fmt.Sprintf("unknown_type(%d)", t.Oid)
}
