// Package config reads the simulation parameters.
//
// The configuration file has three lines, each holding an identifier, an
// integer, and optional trailing text:
//
//	PF 16 page frames
//	TE 8 TLB entries
//	UP 8 use vector shift period
//
// The identifiers are not checked; the lines are read in order.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sarchlab/pagesim/vm"
)

// DefaultPath is the configuration file read when no path is given.
const DefaultPath = "paging.cfg"

var (
	// ErrConfigUnreadable is returned when the configuration cannot be
	// opened or read.
	ErrConfigUnreadable = errors.New("configuration unreadable")

	// ErrConfigInvalid is returned when a parameter is missing or out of
	// range.
	ErrConfigInvalid = errors.New("configuration invalid")
)

// Config holds the simulation parameters.
type Config struct {
	NumFrames         int
	NumTLBEntries     int
	ObservationPeriod int
}

var paramNames = []string{
	"PF (pages frames)",
	"TE (TLB entries)",
	"UP (use bit period)",
}

// Load reads the configuration file at path.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: error in opening %s file: %v",
			ErrConfigUnreadable, path, err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads the configuration from r.
func Parse(r io.Reader) (Config, error) {
	scanner := bufio.NewScanner(r)
	params := make([]int, len(paramNames))

	for i, name := range paramNames {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return Config{}, fmt.Errorf("%w: %v", ErrConfigUnreadable, err)
			}

			return Config{}, fmt.Errorf(
				"%w: error in reading %s from configuration file",
				ErrConfigInvalid, name)
		}

		value, err := parseLine(scanner.Text())
		if err != nil {
			return Config{}, fmt.Errorf(
				"%w: error in reading %s from configuration file: %v",
				ErrConfigInvalid, name, err)
		}

		params[i] = value
	}

	return Config{
		NumFrames:         params[0],
		NumTLBEntries:     params[1],
		ObservationPeriod: params[2],
	}, nil
}

func parseLine(line string) (int, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, fmt.Errorf("expected identifier and value, got %q", line)
	}

	return leadingInt(fields[1])
}

// leadingInt parses the optionally signed decimal number at the start of s
// and ignores whatever follows it, so "16frames" reads as 16.
func leadingInt(s string) (int, error) {
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}

	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}

	if end == digitsStart {
		return 0, fmt.Errorf("expected a number, got %q", s)
	}

	return strconv.Atoi(s[:end])
}

// Validate checks that the parameters can drive a simulation.
func (c Config) Validate() error {
	if c.NumFrames < 1 || c.NumFrames > vm.MaxFrames {
		return fmt.Errorf("%w: number of page frames must be in 1..%d, got %d",
			ErrConfigInvalid, vm.MaxFrames, c.NumFrames)
	}

	if c.NumTLBEntries < 1 {
		return fmt.Errorf("%w: number of TLB entries must be positive, got %d",
			ErrConfigInvalid, c.NumTLBEntries)
	}

	if c.ObservationPeriod < 1 {
		return fmt.Errorf("%w: use vector shift period must be positive, got %d",
			ErrConfigInvalid, c.ObservationPeriod)
	}

	return nil
}
