package main

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/blockrelay/relayer/internal/tpuconfig"
)

// parseTpuPool parses "ip:port:fwd_ip:fwd_port,..." into a pool of
// endpoints for GetTpuConfigs' round-robin.
func parseTpuPool(spec string) ([]tpuconfig.Endpoint, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	var out []tpuconfig.Endpoint
	for _, entry := range strings.Split(spec, ",") {
		parts := strings.Split(entry, ":")
		if len(parts) != 4 {
			return nil, errors.Errorf("cmd/relayer: malformed tpu-pool entry %q", entry)
		}
		tpuPort, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, errors.Wrapf(err, "cmd/relayer: bad tpu port in %q", entry)
		}
		fwdPort, err := strconv.Atoi(parts[3])
		if err != nil {
			return nil, errors.Wrapf(err, "cmd/relayer: bad tpu forward port in %q", entry)
		}
		out = append(out, tpuconfig.Endpoint{
			TpuIP:          parts[0],
			TpuPort:        int32(tpuPort),
			TpuForwardIP:   parts[2],
			TpuForwardPort: int32(fwdPort),
		})
	}
	return out, nil
}
