package templog

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Selector chooses which catalog devices to poll. The console
// implementation asks the operator; tests and headless deployments
// supply a fixed list.
type Selector interface {
	Select(devices []Device) ([]Device, error)
}

// ListSelector picks devices by name. Empty means "all".
type ListSelector []string

func (l ListSelector) Select(devices []Device) ([]Device, error) {
	if len(devices) == 0 {
		return nil, ErrNoDevices
	}
	if len(l) == 0 {
		return devices, nil
	}

	byName := map[string]Device{}
	for _, d := range devices {
		byName[d.Name] = d
	}

	var picked []Device
	for _, name := range l {
		if d, ok := byName[name]; ok {
			picked = append(picked, d)
		}
	}
	if len(picked) == 0 {
		return nil, ErrNoDevices
	}
	return picked, nil
}

// ConsoleSelector prompts with a numbered menu and accepts
// comma-separated numbers or device names. Blank or unrecognized
// input selects everything.
type ConsoleSelector struct {
	In  io.Reader
	Out io.Writer
}

func (c ConsoleSelector) Select(devices []Device) ([]Device, error) {
	if len(devices) == 0 {
		return nil, ErrNoDevices
	}

	fmt.Fprintln(c.Out, "Select instruments to monitor (comma-separated, blank for all):")
	for i, d := range devices {
		fmt.Fprintf(c.Out, "  %d) %s  %s\n", i+1, d.Name, d.Address)
	}
	fmt.Fprint(c.Out, "Choice: ")

	line, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && line == "" {
		// EOF with nothing typed: take everything, same as blank.
		return devices, nil
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return devices, nil
	}

	var picked []Device
	for _, tok := range strings.Split(line, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if n, err := strconv.Atoi(tok); err == nil {
			if n >= 1 && n <= len(devices) {
				picked = append(picked, devices[n-1])
			}
			continue
		}
		for _, d := range devices {
			if strings.EqualFold(d.Name, tok) {
				picked = append(picked, d)
				break
			}
		}
	}

	if len(picked) == 0 {
		fmt.Fprintln(c.Out, "No valid selection detected; defaulting to all.")
		return devices, nil
	}
	return picked, nil
}
