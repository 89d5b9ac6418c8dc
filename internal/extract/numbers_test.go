package extract

import "testing"

func TestParseCount(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"1.2K", 1200, true},
		{"3M", 3_000_000, true},
		{"12,345", 12345, true},
		{" 488 ", 488, true},
		{"2.6M", 2_600_000, true},
		{"4.9k", 4900, true},
		{"", 0, false},
		{"K", 0, false},
		{"abc", 0, false},
		{"-5", 0, false},
		{"1,234.5K", 1_234_500, true},
		{"1e300K", 0, false},
		{"9.3e15M", 0, false},
		{"99999999999999999K", 0, false},
		{"9223372036854775807", 9223372036854775807, true},
		{"9223372036854775808", 0, false},
		{"1,2,3K", 0, false},
		{"1,2,3", 0, false},
		{"12.5", 0, false},
		{"+5", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseCount(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseCount(%q)=(%d,%v)，期望 (%d,%v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"2h 15m", 135, true},
		{"45m", 45, true},
		{"3h", 180, true},
		{"1h 5min", 65, true},
		{"PG-13", 0, false},
		{"2010", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseDuration(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseDuration(%q)=(%d,%v)，期望 (%d,%v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseBudget(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"$1,000,000 (estimated)", 1_000_000, true},
		{"€250,000", 250_000, true},
		{"  $42  ", 42, true},
		{"(estimated)", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseBudget(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseBudget(%q)=(%d,%v)，期望 (%d,%v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseAspectRatio(t *testing.T) {
	if f, ok := ParseAspectRatio("2.39 : 1"); !ok || f != 2.39 {
		t.Fatalf("期望 2.39，实际 (%v,%v)", f, ok)
	}
	if f, ok := ParseAspectRatio("1.85"); !ok || f != 1.85 {
		t.Fatalf("无冒号时也应解析：(%v,%v)", f, ok)
	}
	if _, ok := ParseAspectRatio("wide : 1"); ok {
		t.Fatalf("畸形比例不应解析成功")
	}
}

func TestParseYear(t *testing.T) {
	if y, ok := parseYear("2010"); !ok || y != 2010 {
		t.Fatalf("期望 2010，实际 (%d,%v)", y, ok)
	}
	for _, in := range []string{"", "2010–2012", "２０１０", "20x0"} {
		if _, ok := parseYear(in); ok {
			t.Fatalf("parseYear(%q) 不应成功", in)
		}
	}
}
