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
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"
)

const envPrefix = "BENCH"

var (
	app = kingpin.New("bench", "No help available")
	// Default flags and values.
	logLevelFlag = NewStringFlag(
		"log",
		"Log level: debug, info, warn, error, fatal, panic",
		"info",
	)
	isEnvParsed = false
)

// SetHelp sets the help message for the CLI.
func SetHelp(help string) {
	app.Help = help
}

// SetAppName sets application name for CLI output.
func SetAppName(name string) {
	app.Name = name
}

// AppName returns specified app name.
func AppName() string {
	return app.Name
}

// Command registers a subcommand on the application. Flags defined on the returned
// clause are plain kingpin flags and are not read from the environment.
func Command(name, help string) *kingpin.CmdClause {
	return app.Command(name, help)
}

// LogLevel returns configured logLevel from input option or env variable.
// If it cannot parse the log level, it returns default value.
func LogLevel() logrus.Level {
	level, err := logrus.ParseLevel(logLevelFlag.Value())
	if err == nil {
		return level
	}

	level, err = logrus.ParseLevel(logLevelFlag.defaultValue)
	if err == nil {
		return level
	}

	// Programmer error.
	panic(errors.Wrap(err, "parsing log level failed"))
}

// ParseFlags parses both the command line flags of the process and
// environment variables. It returns the full name of the selected subcommand.
func ParseFlags() (string, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs is ParseFlags for an explicit argument list.
func ParseArgs(args []string) (string, error) {
	command, err := app.Parse(args)
	if err != nil {
		return "", errors.Wrapf(err, "could not parse command line flags")
	}
	isEnvParsed = true
	return command, nil
}

// parseEnv parses the environment for arguments.
func parseEnv() error {
	_, err := app.Parse([]string{})
	if err == nil {
		isEnvParsed = true
		return nil
	}

	return errors.Wrapf(err, "could not parse environment flags")
}

// DumpConfig dumps environment based configuration with current values of flags.
// Includes "allexport" directives for bash.
func DumpConfig() string {
	buffer := &bytes.Buffer{}

	buffer.WriteString("# Export are values.\n")
	buffer.WriteString("set -o allexport\n")

	names := make([]string, 0, len(definedFlags))
	for name := range definedFlags {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		flag := definedFlags[name]
		model := flag.model()
		fmt.Fprintf(buffer, "\n# %s\n", model.Help)
		if len(model.Default) > 0 && model.Default[0] != "" {
			fmt.Fprintf(buffer, "# Default: %s\n", strings.Join(model.Default, ","))
		}
		fmt.Fprintf(buffer, "%s=%s\n", flag.envName(), flag.valueString())
	}

	buffer.WriteString("set +o allexport")
	return buffer.String()
}
