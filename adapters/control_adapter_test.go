package adapters_test

import (
	"testing"

	"github.com/momentics/edgeproxy/adapters"
)

func TestControlAdapterBasic(t *testing.T) {
	ctrl := adapters.NewControlAdapter()
	if cfg := ctrl.GetConfig(); len(cfg) != 0 {
		t.Error("expected empty config before SetConfig")
	}

	ctrl.SetConfig(map[string]any{"host": "0.0.0.0"})
	cfg := ctrl.GetConfig()
	if cfg["host"] != "0.0.0.0" {
		t.Error("SetConfig did not apply")
	}

	ctrl.Metrics().Set("requests_total", int64(1))
	stats := ctrl.Stats()
	if stats["metrics.requests_total"] != int64(1) {
		t.Error("metrics not reflected in Stats")
	}

	probed := false
	ctrl.RegisterDebugProbe("test.probe", func() any {
		probed = true
		return "ok"
	})
	stats = ctrl.Stats()
	if stats["debug.test.probe"] != "ok" || !probed {
		t.Error("debug probe not reflected in Stats")
	}
}
