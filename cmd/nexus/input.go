package main

import (
	"bufio"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// parseInput turns one command-line or file line into a pipeline input.
// A bracketed list of numbers becomes a numeric stream; anything else is
// raw text, with literal \n sequences expanded so CSV input fits on one line.
func parseInput(line string) any {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "[") {
		var values []float64
		if err := yaml.Unmarshal([]byte(trimmed), &values); err == nil && values != nil {
			return values
		}
		if trimmed == "[]" {
			return []float64{}
		}
	}
	return strings.ReplaceAll(line, `\n`, "\n")
}

// collectInputs gathers inputs from args followed by the lines of file.
// A file of "-" reads stdin. Blank lines are skipped.
func collectInputs(args []string, file string, stdin io.Reader) ([]any, error) {
	inputs := make([]any, 0, len(args))
	for _, a := range args {
		inputs = append(inputs, parseInput(a))
	}
	if file == "" {
		return inputs, nil
	}

	r := stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		inputs = append(inputs, parseInput(line))
	}
	return inputs, scanner.Err()
}
