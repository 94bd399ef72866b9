package stats

import (
	"context"
	"encoding/json"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/config"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/logger"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/storage"
)

// CacheStatus describes the request store contents.
type CacheStatus struct {
	TotalEntries int      `json:"totalEntries"`
	ErrorEntries int      `json:"errorEntries"`
	CacheKeys    []string `json:"cacheKeys"`
}

// RecentError is a failed request summary.
type RecentError struct {
	RequestID      string          `json:"requestId"`
	CredentialType string          `json:"credentialType"`
	CreatedAt      time.Time       `json:"createdAt"`
	CallbackData   json.RawMessage `json:"callbackData,omitempty"`
	Error          string          `json:"error"`
}

// Memory is a process memory snapshot in bytes.
type Memory struct {
	RSS       uint64 `json:"rss"`
	VMS       uint64 `json:"vms"`
	HeapAlloc uint64 `json:"heapAlloc"`
	HeapSys   uint64 `json:"heapSys"`
}

// Environment describes the running process.
type Environment struct {
	Version   string  `json:"version"`
	GoVersion string  `json:"goVersion"`
	Platform  string  `json:"platform"`
	Hostname  string  `json:"hostname,omitempty"`
	Uptime    float64 `json:"uptime"`
	Memory    Memory  `json:"memoryUsage"`
}

// Troubleshoot is the diagnostic report served to operators.
type Troubleshoot struct {
	CacheStatus   CacheStatus       `json:"cacheStatus"`
	RecentErrors  []RecentError     `json:"recentErrors"`
	Environment   Environment       `json:"environment"`
	Configuration map[string]string `json:"configuration"`
	StoreHealthy  bool              `json:"storeHealthy"`
}

// HostInspector reads host and process facts.
type HostInspector interface {
	Memory(ctx context.Context) (Memory, error)
	Platform(ctx context.Context) (platform, hostname string)
}

type processInspector struct{}

func (processInspector) Memory(ctx context.Context) (Memory, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m := Memory{HeapAlloc: ms.HeapAlloc, HeapSys: ms.HeapSys}

	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())) // #nosec G115 - pids fit in int32
	if err != nil {
		return m, err
	}
	info, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return m, err
	}
	m.RSS = info.RSS
	m.VMS = info.VMS
	return m, nil
}

func (processInspector) Platform(ctx context.Context) (string, string) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return runtime.GOOS + "/" + runtime.GOARCH, ""
	}
	return info.Platform + " " + info.PlatformVersion + " (" + runtime.GOOS + "/" + runtime.GOARCH + ")", info.Hostname
}

// Troubleshoot assembles the diagnostic report.
func (a *Aggregator) Troubleshoot(ctx context.Context) (*Troubleshoot, error) {
	recs, err := a.list(ctx)
	if err != nil {
		return nil, err
	}

	t := &Troubleshoot{
		CacheStatus:   CacheStatus{TotalEntries: len(recs), CacheKeys: []string{}},
		RecentErrors:  []RecentError{},
		Configuration: a.cfg.ReportMap(),
		StoreHealthy:  a.store.Health(ctx) == nil,
	}
	for _, r := range recs {
		if len(t.CacheStatus.CacheKeys) < CacheKeysLimit {
			t.CacheStatus.CacheKeys = append(t.CacheStatus.CacheKeys, r.RequestID)
		}
		if r.Status != storage.StatusError {
			continue
		}
		t.CacheStatus.ErrorEntries++
		if len(t.RecentErrors) < RecentErrorsLimit {
			t.RecentErrors = append(t.RecentErrors, RecentError{
				RequestID:      r.RequestID,
				CredentialType: r.CredentialType,
				CreatedAt:      r.CreatedAt,
				CallbackData:   r.CallbackData,
				Error:          errorSummary(r),
			})
		}
	}

	t.Environment = a.environment(ctx)
	return t, nil
}

func (a *Aggregator) environment(ctx context.Context) Environment {
	env := Environment{
		Version:   a.version(),
		GoVersion: runtime.Version(),
		Uptime:    a.now().Sub(a.started).Seconds(),
	}
	env.Platform, env.Hostname = a.host.Platform(ctx)

	mem, err := a.host.Memory(ctx)
	if err != nil {
		logger.Debugw("failed to read process memory", "error", err)
	}
	env.Memory = mem
	return env
}

func (a *Aggregator) version() string {
	if a.cfg == nil || a.cfg.Version == "" {
		return "dev"
	}
	return a.cfg.Version
}

// ConfigReport is the configuration check served by the admin API.
type ConfigReport struct {
	Configuration  map[string]string `json:"configuration"`
	Status         string            `json:"status"`
	AllConfigured  bool              `json:"allConfigured"`
	MissingEntries []string          `json:"missing,omitempty"`
}

// TestConfig reports which required settings are configured.
func TestConfig(cfg *config.Config) ConfigReport {
	missing := cfg.Missing()
	r := ConfigReport{
		Configuration:  cfg.ReportMap(),
		AllConfigured:  len(missing) == 0,
		MissingEntries: missing,
		Status:         "Configuration complete",
	}
	if !r.AllConfigured {
		r.Status = "Incomplete configuration"
	}
	return r
}
