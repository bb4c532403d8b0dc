// Package gpuinfo describes the machine a comparison ran on.
package gpuinfo

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

const DefaultSMIBinary = "nvidia-smi"

type GPU struct {
	Name          string
	DriverVersion string
	CUDAVersion   string
	MemTotalMB    float64
}

type Env struct {
	OS            string
	Arch          string
	CPUModel      string
	CPUNumLogical int
	GPUs          []GPU
}

// Minimal XML mapping for nvidia-smi -x -q
type smiLog struct {
	XMLName       xml.Name `xml:"nvidia_smi_log"`
	DriverVersion string   `xml:"driver_version"`
	CUDAVersion   string   `xml:"cuda_version"`
	GPUs          []smiGPU `xml:"gpu"`
}

type smiGPU struct {
	ProductName string      `xml:"product_name"`
	FBMem       smiFBMemory `xml:"fb_memory_usage"`
}

type smiFBMemory struct {
	Total string `xml:"total"`
}

// ParseSMI decodes the XML report of nvidia-smi -x -q.
func ParseSMI(r io.Reader) ([]GPU, error) {
	var log smiLog
	if err := xml.NewDecoder(r).Decode(&log); err != nil {
		return nil, err
	}
	gpus := make([]GPU, 0, len(log.GPUs))
	for _, g := range log.GPUs {
		gpus = append(gpus, GPU{
			Name:          strings.TrimSpace(g.ProductName),
			DriverVersion: strings.TrimSpace(log.DriverVersion),
			CUDAVersion:   strings.TrimSpace(log.CUDAVersion),
			MemTotalMB:    parseMiB(g.FBMem.Total),
		})
	}
	return gpus, nil
}

func parseMiB(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "MiB"))
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	// Some fields can be like "16384 MiB (reserved)"
	if fields := strings.Fields(s); len(fields) > 0 {
		if v, err := strconv.ParseFloat(fields[0], 64); err == nil {
			return v
		}
	}
	return 0
}

// ParseCPUModel returns the first "model name" of a /proc/cpuinfo listing.
func ParseCPUModel(r io.Reader) string {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "model name") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				return strings.TrimSpace(parts[1])
			}
		}
	}
	return ""
}

func detectCPUModel() string {
	if runtime.GOOS == "darwin" {
		out, err := exec.Command("sysctl", "-n", "machdep.cpu.brand_string").Output()
		if err == nil {
			return strings.TrimSpace(string(out))
		}
	}
	if runtime.GOOS == "linux" {
		f, err := os.Open("/proc/cpuinfo")
		if err == nil {
			defer f.Close()
			if model := ParseCPUModel(f); model != "" {
				return model
			}
		}
	}
	return runtime.GOARCH + " CPU"
}

// Probe collects the host environment. A missing or failing nvidia-smi
// leaves GPUs empty; it is logged, never returned.
func Probe(ctx context.Context, smiBinary string, logger *slog.Logger) Env {
	if logger == nil {
		logger = slog.Default()
	}
	if smiBinary == "" {
		smiBinary = DefaultSMIBinary
	}
	env := Env{
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
		CPUModel:      detectCPUModel(),
		CPUNumLogical: runtime.NumCPU(),
	}

	if _, err := exec.LookPath(smiBinary); err != nil {
		logger.Debug("gpu probe skipped", "binary", smiBinary, "error", err)
		return env
	}
	out, err := exec.CommandContext(ctx, smiBinary, "-x", "-q").Output()
	if err != nil {
		logger.Warn("gpu probe failed", "binary", smiBinary, "error", err)
		return env
	}
	gpus, err := ParseSMI(bytes.NewReader(out))
	if err != nil {
		logger.Warn("gpu probe output unreadable", "binary", smiBinary, "error", err)
		return env
	}
	env.GPUs = gpus
	return env
}
