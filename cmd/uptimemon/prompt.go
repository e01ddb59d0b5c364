package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// promptDuration runs the interactive duration menu. Invalid input
// re-prompts; EOF means run until interrupted.
func promptDuration(in io.Reader, out io.Writer) time.Duration {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprintln(out, "Select monitoring duration:")
		fmt.Fprintln(out, "  0 - run until interrupted")
		fmt.Fprintln(out, "  1 - 30 minutes")
		fmt.Fprintln(out, "  2 - custom")
		fmt.Fprint(out, "Choice: ")

		if !scanner.Scan() {
			fmt.Fprintln(out)
			return 0
		}

		switch strings.TrimSpace(scanner.Text()) {
		case "0":
			return 0
		case "1":
			return 30 * time.Minute
		case "2":
			if d, ok := promptMinutes(scanner, out); ok {
				return d
			}
			return 0
		default:
			fmt.Fprintln(out, "Enter 0, 1, or 2.")
		}
	}
}

func promptMinutes(scanner *bufio.Scanner, out io.Writer) (time.Duration, bool) {
	for {
		fmt.Fprint(out, "Duration in minutes: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return 0, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(scanner.Text()), 64)
		if err != nil || v <= 0 {
			fmt.Fprintln(out, "Enter a positive number of minutes.")
			continue
		}
		return time.Duration(v * float64(time.Minute)), true
	}
}
