package serial

import (
	"fmt"
	"sort"

	gobug "go.bug.st/serial"
)

// overridden in tests
var getPortsList = gobug.GetPortsList

// ListPorts returns the serial device paths present on the system, sorted.
func ListPorts() ([]string, error) {
	ports, err := getPortsList()
	if err != nil {
		return nil, fmt.Errorf("list ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}
