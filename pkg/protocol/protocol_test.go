package protocol

import "testing"

func TestIsSentinel(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{raw: "gameend", want: true},
		{raw: "GAMEEND", want: true},
		{raw: "GameEnd", want: true},
		{raw: "  gameend \n", want: true},
		{raw: "game end", want: false},
		{raw: "1", want: false},
		{raw: "", want: false},
	}
	for _, tc := range cases {
		if got := IsSentinel(tc.raw); got != tc.want {
			t.Errorf("IsSentinel(%q): got %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestNoticeFormats(t *testing.T) {
	if got := RoleNotice(2); got != "Game started! You are Player 2." {
		t.Errorf("RoleNotice: %q", got)
	}
	if got := ValueNotice(1, -4); got != "Player 1: -4" {
		t.Errorf("ValueNotice: %q", got)
	}
	if got := WinNotice(2); got != "Player 2 Won!" {
		t.Errorf("WinNotice: %q", got)
	}
}
