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

package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// CreateLogFile creates directory and the log file of a sweep within it.
func CreateLogFile(directory, appName, sweepID string) (*os.File, error) {
	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, errors.Wrapf(err, "cannot create %s", directory)
	}
	filename := filepath.Join(directory, fmt.Sprintf("%s-%s.log", appName, sweepID))
	logFile, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create log file %s", filename)
	}
	return logFile, nil
}

// Initialize generates a sweep ID and configures logrus to log both to stderr
// and to a log file of the sweep in directory. The returned file should be
// closed when the sweep ends.
func Initialize(appName, directory string) (string, io.Closer, error) {
	sweepID := uuid.New().String()
	logFile, err := CreateLogFile(directory, appName, sweepID)
	if err != nil {
		return "", nil, err
	}

	// Setup logging set to both output and logFile.
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05.100"})
	logrus.SetOutput(io.MultiWriter(logFile, os.Stderr))

	logrus.Info("Starting ", appName, " sweep with uid ", sweepID)
	return sweepID, logFile, nil
}
