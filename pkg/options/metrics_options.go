// Copyright 2025 The Autopeer Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package options

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/pflag"
)

var _ IOptions = (*MetricsOptions)(nil)

// MetricsOptions controls the node-exporter textfile written at exit.
type MetricsOptions struct {
	TextfilePath string `json:"textfile-path" mapstructure:"textfile-path"`
}

func NewMetricsOptions() *MetricsOptions {
	return &MetricsOptions{}
}

func (o *MetricsOptions) Validate() []error {
	if o == nil || o.TextfilePath == "" {
		return nil
	}
	if filepath.Ext(o.TextfilePath) != ".prom" {
		return []error{fmt.Errorf("--metrics.textfile-path must end in .prom, got %q", o.TextfilePath)}
	}
	return nil
}

func (o *MetricsOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.TextfilePath, "metrics.textfile-path", o.TextfilePath,
		"Write run metrics to this node-exporter textfile on exit (empty disables).")
}
