package metrics

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/dustin/go-humanize"
)

// SysHealth represents real-time system metrics.
type SysHealth struct {
	Alloc        string
	TotalAlloc   string
	Sys          string
	NumGC        uint32
	Goroutines   int
	DataDiskSize string
}

// GetSysHealth collects real-time health data.
func GetSysHealth(dataPath string) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SysHealth{
		Alloc:        humanize.Bytes(m.Alloc),
		TotalAlloc:   humanize.Bytes(m.TotalAlloc),
		Sys:          humanize.Bytes(m.Sys),
		NumGC:        m.NumGC,
		Goroutines:   runtime.NumGoroutine(),
		DataDiskSize: humanize.Bytes(dirSize(dataPath)),
	}
}

func dirSize(path string) uint64 {
	var size int64
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return uint64(size)
}
