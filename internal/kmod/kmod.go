// Package kmod lists the kernel modules currently loaded, per /proc/modules.
package kmod

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

var procModulesPath = "/proc/modules"

type Module struct {
	Name     string
	Size     int
	Refcount int
}

// All returns every currently loaded kernel module.
func All() ([]Module, error) {
	data, err := os.ReadFile(procModulesPath)
	if err != nil {
		return nil, err
	}
	return parseModules(string(data))
}

func parseModules(text string) ([]Module, error) {
	var modules []Module
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("malformed /proc/modules line: %q", line)
		}
		size, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("malformed module size in %q: %w", line, err)
		}
		refcount, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("malformed module refcount in %q: %w", line, err)
		}
		modules = append(modules, Module{Name: fields[0], Size: size, Refcount: refcount})
	}
	return modules, nil
}
