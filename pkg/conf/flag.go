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

package conf

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"
)

// flagType is an internal interface for all flags.
// Every flag knows its environment variable name, can clear it and can render its
// current value for DumpConfig.
type flagType interface {
	envName() string
	clear()
	model() *kingpin.FlagModel
	valueString() string
}

// definedFlags stores all the defined flags. It helps to find duplicates when defining
// flag with the same name.
var definedFlags = map[string]flagType{}

// cliAndEnvFlag represents option's definition from CLI and Environment variable.
type cliAndEnvFlag struct {
	*kingpin.FlagClause
}

func newCliAndEnvFlag(flagName string, description string, defaultValues ...string) *cliAndEnvFlag {
	if definedFlags[flagName] != nil {
		panic("This flag was already defined. Flag definition is lack of duplicate check.")
	}

	c := &cliAndEnvFlag{FlagClause: app.Flag(flagName, description)}
	c.Envar(c.envName())

	for _, defaultValue := range defaultValues {
		if defaultValue == "" {
			continue
		}
		c.Default(defaultValue)
	}

	return c
}

// envName returns name converted to environment variable name.
// For instance: "cassandra_address" will be "BENCH_CASSANDRA_ADDRESS".
func (f *cliAndEnvFlag) envName() string {
	return fmt.Sprintf("%s_%s", envPrefix, strings.ToUpper(f.Model().Name))
}

// clear unsets the corresponding environment variable.
func (f *cliAndEnvFlag) clear() {
	os.Unsetenv(f.envName())
}

func (f *cliAndEnvFlag) model() *kingpin.FlagModel {
	return f.Model()
}

// StringFlag represents flag with string value.
type StringFlag struct {
	*cliAndEnvFlag
	defaultValue string
	value        *string
}

// NewStringFlag is a constructor of StringFlag struct.
func NewStringFlag(flagName string, description string, defaultValue string) *StringFlag {
	if duplicatedFlag := definedFlags[flagName]; duplicatedFlag != nil {
		flagDef, ok := duplicatedFlag.(*StringFlag)
		if !ok {
			panic("Flag was redefined but with different type. Unify the type.")
		}
		if flagDef.defaultValue != defaultValue {
			panic("Flag was redefined but with different default value. Unify the default.")
		}
		return flagDef
	}

	flagDef := &StringFlag{
		cliAndEnvFlag: newCliAndEnvFlag(flagName, description, defaultValue),
		defaultValue:  defaultValue,
	}
	flagDef.value = flagDef.String()
	definedFlags[flagName] = flagDef
	isEnvParsed = false
	return flagDef
}

// Value returns value of defined flag after parse.
// NOTE: If conf is not parsed it returns default value (!)
func (s StringFlag) Value() string {
	if !isEnvParsed {
		return s.defaultValue
	}
	return *s.value
}

func (s StringFlag) valueString() string {
	return s.Value()
}

// IntFlag represents flag with int value.
type IntFlag struct {
	*cliAndEnvFlag
	defaultValue int
	value        *int
}

// NewIntFlag is a constructor of IntFlag struct.
func NewIntFlag(flagName string, description string, defaultValue int) *IntFlag {
	if duplicatedFlag := definedFlags[flagName]; duplicatedFlag != nil {
		flagDef, ok := duplicatedFlag.(*IntFlag)
		if !ok {
			panic("Flag was redefined but with different type. Unify the type.")
		}
		if flagDef.defaultValue != defaultValue {
			panic("Flag was redefined but with different default value. Unify the default.")
		}
		return flagDef
	}

	flagDef := &IntFlag{
		cliAndEnvFlag: newCliAndEnvFlag(flagName, description, fmt.Sprintf("%d", defaultValue)),
		defaultValue:  defaultValue,
	}
	flagDef.value = flagDef.Int()
	definedFlags[flagName] = flagDef
	isEnvParsed = false
	return flagDef
}

// Value returns value of defined flag after parse.
// NOTE: If conf is not parsed it returns default value (!)
func (i IntFlag) Value() int {
	if !isEnvParsed {
		return i.defaultValue
	}
	return *i.value
}

func (i IntFlag) valueString() string {
	return fmt.Sprintf("%d", i.Value())
}

// SliceFlag represents flag with slice string values.
type SliceFlag struct {
	*cliAndEnvFlag
	defaultValue []string
	value        *[]string
}

// NewSliceFlag is a constructor of SliceFlag struct.
func NewSliceFlag(flagName string, description string, elemsInDefaultSlice ...string) *SliceFlag {
	if duplicatedFlag := definedFlags[flagName]; duplicatedFlag != nil {
		flagDef, ok := duplicatedFlag.(*SliceFlag)
		if !ok {
			panic("Flag was redefined but with different type. Unify the type.")
		}
		for i, elem := range elemsInDefaultSlice {
			if i >= len(flagDef.defaultValue) || flagDef.defaultValue[i] != elem {
				panic("Flag was redefined but with different default value. Unify the default.")
			}
		}
		return flagDef
	}

	flagDef := &SliceFlag{
		cliAndEnvFlag: newCliAndEnvFlag(flagName, description, strings.Join(elemsInDefaultSlice, stringListDelimiter)),
		defaultValue:  elemsInDefaultSlice,
	}
	flagDef.value = StringList(flagDef)
	definedFlags[flagName] = flagDef
	isEnvParsed = false
	return flagDef
}

// Value returns value of defined flag after parse.
func (s SliceFlag) Value() []string {
	if !isEnvParsed {
		if s.defaultValue == nil {
			return []string{}
		}
		return s.defaultValue
	}
	return *s.value
}

func (s SliceFlag) valueString() string {
	return strings.Join(s.Value(), stringListDelimiter)
}

// BoolFlag represents flag with bool value.
type BoolFlag struct {
	*cliAndEnvFlag
	defaultValue bool
	value        *bool
}

// NewBoolFlag is a constructor of BoolFlag struct.
func NewBoolFlag(flagName string, description string, defaultValue bool) *BoolFlag {
	if duplicatedFlag := definedFlags[flagName]; duplicatedFlag != nil {
		flagDef, ok := duplicatedFlag.(*BoolFlag)
		if !ok {
			panic("Flag was redefined but with different type. Unify the type.")
		}
		if flagDef.defaultValue != defaultValue {
			panic("Flag was redefined but with different default value. Unify the default.")
		}
		return flagDef
	}

	flagDef := &BoolFlag{
		cliAndEnvFlag: newCliAndEnvFlag(flagName, description, fmt.Sprintf("%v", defaultValue)),
		defaultValue:  defaultValue,
	}
	flagDef.value = flagDef.Bool()
	definedFlags[flagName] = flagDef
	isEnvParsed = false
	return flagDef
}

// Value returns value of defined flag after parse.
// NOTE: If conf is not parsed it returns default value (!)
func (b BoolFlag) Value() bool {
	if !isEnvParsed {
		return b.defaultValue
	}
	return *b.value
}

func (b BoolFlag) valueString() string {
	return fmt.Sprintf("%v", b.Value())
}

// DurationFlag represents flag with duration value.
type DurationFlag struct {
	*cliAndEnvFlag
	defaultValue time.Duration
	value        *time.Duration
}

// NewDurationFlag is a constructor of DurationFlag struct.
func NewDurationFlag(flagName string, description string, defaultValue time.Duration) *DurationFlag {
	if duplicatedFlag := definedFlags[flagName]; duplicatedFlag != nil {
		flagDef, ok := duplicatedFlag.(*DurationFlag)
		if !ok {
			panic("Flag was redefined but with different type. Unify the type.")
		}
		if flagDef.defaultValue != defaultValue {
			panic("Flag was redefined but with different default value. Unify the default.")
		}
		return flagDef
	}

	flagDef := &DurationFlag{
		cliAndEnvFlag: newCliAndEnvFlag(flagName, description, defaultValue.String()),
		defaultValue:  defaultValue,
	}
	flagDef.value = flagDef.Duration()
	definedFlags[flagName] = flagDef
	isEnvParsed = false
	return flagDef
}

// Value returns value of defined flag after parse.
// NOTE: If conf is not parsed it returns default value (!)
func (d DurationFlag) Value() time.Duration {
	if !isEnvParsed {
		return d.defaultValue
	}
	return *d.value
}

func (d DurationFlag) valueString() string {
	return d.Value().String()
}
