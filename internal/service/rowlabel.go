package service

import (
	"sort"
	"strings"

	"github.com/iliyamo/showtime-booking/internal/model"
)

// indexToRowLabel converts a zero-based row index to its label:
// 0 -> A, 25 -> Z, 26 -> AA.
func indexToRowLabel(i int) string {
	if i < 0 {
		return ""
	}
	var res []byte
	for {
		res = append(res, byte('A'+i%26))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}

// rowLabelToIndex is the inverse of indexToRowLabel.
func rowLabelToIndex(label string) (int, bool) {
	s := strings.ToUpper(strings.TrimSpace(label))
	if s == "" {
		return -1, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch < 'A' || ch > 'Z' {
			return -1, false
		}
		n = n*26 + int(ch-'A'+1)
	}
	return n - 1, true
}

// sortSeats orders seats by row index, then seat number.  Labels that do
// not parse sort last.
func sortSeats(seats []model.Seat) {
	sort.SliceStable(seats, func(i, j int) bool {
		ri, _ := rowLabelToIndex(seats[i].RowLabel)
		rj, _ := rowLabelToIndex(seats[j].RowLabel)
		if ri < 0 {
			ri = int(^uint(0) >> 1)
		}
		if rj < 0 {
			rj = int(^uint(0) >> 1)
		}
		if ri != rj {
			return ri < rj
		}
		return seats[i].SeatNumber < seats[j].SeatNumber
	})
}
