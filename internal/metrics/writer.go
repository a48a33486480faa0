// SPDX-License-Identifier: GPL-3.0

package metrics

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// WriteTo gathers every metric family registered against reg and writes it
// in Prometheus text exposition format to path, overwriting any existing
// file. This is the sweep's final step (§6): the simulator never serves
// /metrics over HTTP, since the Non-goals exclude real-time execution.
func WriteTo(reg *prometheus.Registry, path string) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := expfmt.NewEncoder(f, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
