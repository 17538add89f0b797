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
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFlags(t *testing.T) {
	Convey("While using Conf flags", t, func() {
		Convey("When some custom String Flag is defined", func() {
			// Register custom flag.
			customFlag := NewStringFlag("custom_string_arg", "help", "default")
			customFlag.clear()
			defer customFlag.clear()

			Convey("Without parse it should be default", func() {
				So(customFlag.Value(), ShouldEqual, "default")
			})

			Convey("When we do not define any environment variable we should have default value after parse", func() {
				err := parseEnv()
				So(err, ShouldBeNil)
				So(customFlag.Value(), ShouldEqual, customFlag.defaultValue)
			})

			Convey("When we define custom environment variable we should have custom value after parse", func() {
				customValue := "customContent"
				os.Setenv(customFlag.envName(), customValue)

				err := parseEnv()
				So(err, ShouldBeNil)
				So(customFlag.Value(), ShouldEqual, customValue)
			})
		})

		Convey("When some custom Int Flag is defined", func() {
			// Register custom flag.
			customFlag := NewIntFlag("custom_int_arg", "help", 23424)
			customFlag.clear()
			defer customFlag.clear()

			Convey("Without parse it should be default", func() {
				So(customFlag.Value(), ShouldEqual, 23424)
			})

			Convey("When we do not define any environment variable we should have default value after parse", func() {
				err := parseEnv()
				So(err, ShouldBeNil)
				So(customFlag.Value(), ShouldEqual, customFlag.defaultValue)
			})

			Convey("When we define custom environment variable we should have custom value after parse", func() {
				customValue := 12
				os.Setenv(customFlag.envName(), fmt.Sprintf("%d", customValue))

				err := parseEnv()
				So(err, ShouldBeNil)
				So(customFlag.Value(), ShouldEqual, customValue)
			})
		})

		Convey("When some custom Slice Flag is defined", func() {
			// Register custom flag.
			customFlag := NewSliceFlag("custom_slice_arg", "help")
			customFlag.clear()
			defer customFlag.clear()

			Convey("Without parse it should be default", func() {
				So(customFlag.Value(), ShouldResemble, []string{})
			})

			Convey("When we do not define any environment variable we should have default value after parse", func() {
				err := parseEnv()
				So(err, ShouldBeNil)
				So(customFlag.Value(), ShouldResemble, customFlag.defaultValue)
			})

			Convey("When we define custom environment variable we should have custom value after parse", func() {
				customValue := fmt.Sprintf("A%sB%sC", stringListDelimiter, stringListDelimiter)
				os.Setenv(customFlag.envName(), customValue)

				err := parseEnv()
				So(err, ShouldBeNil)
				So(customFlag.Value(), ShouldResemble, []string{"A", "B", "C"})
			})
		})

		Convey("When some custom Bool Flag is defined", func() {
			// Register custom flag.
			customFlag := NewBoolFlag("custom_bool_arg", "help", false)
			customFlag.clear()
			defer customFlag.clear()

			Convey("Without parse it should be default", func() {
				So(customFlag.Value(), ShouldEqual, false)
			})

			Convey("When we do not define any environment variable we should have default value after parse", func() {
				err := parseEnv()
				So(err, ShouldBeNil)
				So(customFlag.Value(), ShouldEqual, customFlag.defaultValue)
			})

			Convey("When we define custom environment variable we should have custom value after parse", func() {
				customValue := true
				os.Setenv(customFlag.envName(), fmt.Sprintf("%v", customValue))

				err := parseEnv()
				So(err, ShouldBeNil)
				So(customFlag.Value(), ShouldEqual, customValue)
			})
		})

		Convey("When some custom Duration Flag is defined", func() {
			// Register custom flag.
			customFlag := NewDurationFlag("custom_duration_arg", "help", 99*time.Millisecond)
			customFlag.clear()
			defer customFlag.clear()

			Convey("Without parse it should be default", func() {
				So(customFlag.Value(), ShouldEqual, 99*time.Millisecond)
			})

			Convey("When we do not define any environment variable we should have default value after parse", func() {
				err := parseEnv()
				So(err, ShouldBeNil)
				So(customFlag.Value(), ShouldEqual, customFlag.defaultValue)
			})

			Convey("When we define custom environment variable we should have custom value after parse", func() {
				customValue := 1234 * time.Second
				os.Setenv(customFlag.envName(), customValue.String())

				err := parseEnv()
				So(err, ShouldBeNil)
				So(customFlag.Value(), ShouldEqual, customValue)
			})
		})
	})
}

func TestDumpConfig(t *testing.T) {
	Convey("While using flags, DumpConfig renders current values as environment assignments", t, func() {
		defaultString := "http://foo-bar"
		stringTestFlag := NewStringFlag("dump_string", "stringDesc", defaultString)

		intTestFlag := NewIntFlag("dump_int", "intDesc", 628)
		durTestFlag := NewDurationFlag("dump_duration", "durDesc", 123*time.Second)

		_, err := ParseArgs([]string{
			"--dump_int", "13",
			"--dump_duration", "2h0m0s",
			"--dump_string", "bar-foo",
		})
		So(err, ShouldBeNil)

		dump := DumpConfig()
		So(dump, ShouldStartWith, "# Export are values.")
		So(dump, ShouldEndWith, "set +o allexport")
		So(dump, ShouldContainSubstring, stringTestFlag.envName()+"=bar-foo\n")
		So(dump, ShouldContainSubstring, "# Default: "+defaultString+"\n")
		So(dump, ShouldContainSubstring, intTestFlag.envName()+"=13\n")
		So(dump, ShouldContainSubstring, durTestFlag.envName()+"=2h0m0s\n")

		Convey("Flags are dumped in name order", func() {
			So(strings.Index(dump, "BENCH_DUMP_DURATION"), ShouldBeLessThan, strings.Index(dump, "BENCH_DUMP_INT"))
			So(strings.Index(dump, "BENCH_DUMP_INT"), ShouldBeLessThan, strings.Index(dump, "BENCH_DUMP_STRING"))
		})
	})
}
