package display_test

import (
	"strconv"
	"strings"
)

// screen replays the bytes a session wrote and returns the visible rows.
// It understands the sequences the terminal package emits.
func screen(out string) []string {
	var (
		lines    [][]rune
		row, col int
	)
	ensure := func() {
		for len(lines) <= row {
			lines = append(lines, nil)
		}
	}

	rs := []rune(out)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case r == 0x1b && i+1 < len(rs) && rs[i+1] == '[':
			j := i + 2
			for j < len(rs) && (rs[j] < 0x40 || rs[j] > 0x7e) {
				j++
			}
			if j >= len(rs) {
				return rowsOf(lines)
			}
			params := string(rs[i+2 : j])
			n, err := strconv.Atoi(strings.TrimPrefix(params, "?"))
			if err != nil {
				n = 0
			}
			switch rs[j] {
			case 'A':
				if n == 0 {
					n = 1
				}
				row -= n
				if row < 0 {
					row = 0
				}
			case 'G':
				col = n - 1
				if col < 0 {
					col = 0
				}
			case 'K':
				ensure()
				if col < len(lines[row]) {
					lines[row] = lines[row][:col]
				}
			case 'J':
				ensure()
				if col < len(lines[row]) {
					lines[row] = lines[row][:col]
				}
				lines = lines[:row+1]
			}
			i = j
		case r == '\n':
			row++
			col = 0
			ensure()
		case r == '\r':
			col = 0
		default:
			ensure()
			for len(lines[row]) < col {
				lines[row] = append(lines[row], ' ')
			}
			if col < len(lines[row]) {
				lines[row][col] = r
			} else {
				lines[row] = append(lines[row], r)
			}
			col++
		}
	}
	return rowsOf(lines)
}

func rowsOf(lines [][]rune) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = string(l)
	}
	return out
}
