package caption

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"full", "01:02:03.456", time.Hour + 2*time.Minute + 3*time.Second + ms(456), false},
		{"no hours", "02:03.456", 2*time.Minute + 3*time.Second + ms(456), false},
		{"no millis", "00:00:07", 7 * time.Second, false},
		{"short millis padded", "00:00:01.5", time.Second + ms(500), false},
		{"two digit millis padded", "00:01.25", time.Second + ms(250), false},
		{"long millis truncated", "00:00:01.2345", time.Second + ms(234), false},
		{"bare seconds with fraction", "7.250", 7*time.Second + ms(250), false},
		{"surrounding space", "  00:00:01.000 ", time.Second, false},
		{"bare seconds without fraction", "7", 0, true},
		{"too many parts", "1:00:00:01.000", 0, true},
		{"non numeric", "00:aa:01.000", 0, true},
		{"empty fraction", "00:00:01.", 0, true},
		{"negative", "-1:00.000", 0, true},
		{"empty", "", 0, true},
		{"at the bound", "100000:00:00.000", MaxTimestamp, false},
		{"past the bound", "100000:00:00.001", 0, true},
		{"huge hours", "3000000:00:00.000", 0, true},
		{"huge minutes", "99999999999:00.000", 0, true},
		{"beyond int range", "99999999999999999999:00:00.000", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidTimestamp)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "00:00:00.000", FormatTimestamp(0))
	assert.Equal(t, "00:00:00.000", FormatTimestamp(-time.Second))
	assert.Equal(t, "01:02:03.456", FormatTimestamp(time.Hour+2*time.Minute+3*time.Second+ms(456)))
	assert.Equal(t, "27:00:00.001", FormatTimestamp(27*time.Hour+ms(1)))
}

const sample = `WEBVTT
Kind: captions
Language: en

NOTE this block is a comment

1
00:00:00.000 --> 00:00:02.000 align:start position:0%
hello
world

00:02.000 --> 00:04.000
second

intro
00:00:09.000 --> 00:00:11.000
third
`

func TestParse(t *testing.T) {
	report := Parse([]byte(sample))

	require.Len(t, report.Cues, 3)
	assert.Empty(t, report.Issues)
	assert.Equal(t, 1, report.SkippedBlocks)

	first := report.Cues[0]
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, time.Duration(0), first.Start)
	assert.Equal(t, 2*time.Second, first.End)
	assert.Equal(t, []string{"hello", "world"}, first.Text)
	assert.Equal(t, " align:start position:0%", first.Settings)
	assert.Equal(t, "00:00:00.000 --> 00:00:02.000 align:start position:0%", first.Header)

	second := report.Cues[1]
	assert.Empty(t, second.ID)
	assert.Equal(t, 2*time.Second, second.Start)
	assert.Equal(t, 4*time.Second, second.End)
	assert.Empty(t, second.Settings)

	third := report.Cues[2]
	assert.Equal(t, "intro", third.ID)
	assert.Equal(t, []string{"third"}, third.Text)
}

func TestParse_DropsMalformedBlocks(t *testing.T) {
	input := strings.Join([]string{
		"WEBVTT",
		"",
		"00:00:01.000 --> 00:00:02.000",
		"good one",
		"",
		"00:00:xx.000 --> 00:00:04.000",
		"bad start",
		"",
		"00:00:05.000 --> 00:00:06.000 --> 00:00:07.000",
		"too many arrows",
		"",
		"00:00:09.000 --> 00:00:08.000",
		"ends before start",
		"",
		"00:00:10.000 --> 00:00:11.000",
		"good two",
	}, "\n")

	report := Parse([]byte(input))

	require.Len(t, report.Cues, 2)
	assert.Equal(t, []string{"good one"}, report.Cues[0].Text)
	assert.Equal(t, []string{"good two"}, report.Cues[1].Text)

	require.Len(t, report.Issues, 3)
	assert.Equal(t, 6, report.Issues[0].Line)
	assert.Equal(t, 9, report.Issues[1].Line)
	assert.Equal(t, 12, report.Issues[2].Line)
	assert.Contains(t, report.Issues[2].Reason, ErrNegativeSpan.Error())
}

func TestParse_DropsOverflowingTimestamp(t *testing.T) {
	input := "WEBVTT\n\n3000000:00:00.000 --> 3000000:00:01.000\nfar away\n\n00:00:01.000 --> 00:00:02.000\nkept\n"

	report := Parse([]byte(input))

	require.Len(t, report.Cues, 1)
	assert.Equal(t, []string{"kept"}, report.Cues[0].Text)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, 3, report.Issues[0].Line)
}

func TestParse_HeaderlessAndCRLF(t *testing.T) {
	input := "\ufeff00:00:01.000 --> 00:00:02.000\r\nfirst\r\n\r\n00:00:03.000 --> 00:00:04.000\r\nsecond"

	report := Parse([]byte(input))

	require.Len(t, report.Cues, 2)
	assert.Equal(t, []string{"first"}, report.Cues[0].Text)
	assert.Equal(t, []string{"second"}, report.Cues[1].Text)
}

func TestParse_TimingLinePastSecondLineIsSkipped(t *testing.T) {
	input := "WEBVTT\n\nid\nextra\n00:00:01.000 --> 00:00:02.000\ntext\n"

	report := Parse([]byte(input))

	assert.Empty(t, report.Cues)
	assert.Equal(t, 1, report.SkippedBlocks)
}

func TestParse_StylingOnlyCue(t *testing.T) {
	report := Parse([]byte("WEBVTT\n\n00:00:01.000 --> 00:00:02.000 line:0\n"))

	require.Len(t, report.Cues, 1)
	assert.Empty(t, report.Cues[0].Text)
	assert.False(t, report.Cues[0].HasText())
}

func TestParse_Empty(t *testing.T) {
	report := Parse(nil)
	assert.Empty(t, report.Cues)
	assert.Empty(t, report.Issues)
}

func TestParse_KeepsFileOrder(t *testing.T) {
	input := "WEBVTT\n\n00:00:05.000 --> 00:00:06.000\nlate\n\n00:00:01.000 --> 00:00:02.000\nearly\n"

	report := Parse([]byte(input))

	require.Len(t, report.Cues, 2)
	assert.Equal(t, []string{"late"}, report.Cues[0].Text)
	assert.Equal(t, []string{"early"}, report.Cues[1].Text)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestRead(t *testing.T) {
	report, err := Read(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Len(t, report.Cues, 3)

	_, err = Read(failingReader{})
	require.Error(t, err)
}

func TestRebase(t *testing.T) {
	cues := []Cue{
		{Start: ms(9000), End: ms(11000), Text: []string{"c"}, Settings: " align:start"},
		{Start: ms(8000), End: ms(9500), Text: []string{"before origin"}},
		{Start: ms(7000), End: ms(8000), Text: []string{"entirely before"}},
	}

	got := Rebase(cues, ms(9000))

	require.Len(t, got, 3)
	assert.Equal(t, time.Duration(0), got[0].Start)
	assert.Equal(t, ms(2000), got[0].End)
	assert.Equal(t, "00:00:00.000 --> 00:00:02.000 align:start", got[0].Header)

	assert.Equal(t, time.Duration(0), got[1].Start)
	assert.Equal(t, ms(500), got[1].End)

	assert.Equal(t, time.Duration(0), got[2].Start)
	assert.Equal(t, time.Duration(0), got[2].End)

	// Source cues are untouched.
	assert.Equal(t, ms(9000), cues[0].Start)
	got[0].Text[0] = "mutated"
	assert.Equal(t, "c", cues[0].Text[0])
}

func TestFormat(t *testing.T) {
	cues := []Cue{
		{ID: "7", Start: 0, End: ms(2000), Text: []string{"c", "d"}, Settings: " align:start"},
		{Start: ms(2000), End: ms(2000)},
		{Start: ms(2000), End: ms(2000), Text: []string{"zero length but spoken"}},
	}

	want := "WEBVTT\n\n" +
		"7\n00:00:00.000 --> 00:00:02.000 align:start\nc\nd\n\n" +
		"00:00:02.000 --> 00:00:02.000\nzero length but spoken\n\n"

	assert.Equal(t, want, string(Format(cues)))
}

func TestFormat_EmptyIsValid(t *testing.T) {
	out := Format([]Cue{{Start: ms(5), End: ms(5)}})
	assert.Equal(t, "WEBVTT\n\n", string(out))

	report := Parse(out)
	assert.Empty(t, report.Cues)
	assert.Empty(t, report.Issues)
}

func TestRoundTrip(t *testing.T) {
	source := Parse([]byte(sample)).Cues

	rebased := Rebase(source, ms(500))
	reparsed := Parse(Format(rebased)).Cues

	require.Len(t, reparsed, len(source))
	for i := range source {
		assert.Equal(t, source[i].Text, reparsed[i].Text)
		assert.Equal(t, source[i].ID, reparsed[i].ID)
		assert.Equal(t, source[i].Settings, reparsed[i].Settings)
		assert.Equal(t, rebased[i].Start, reparsed[i].Start)
		assert.Equal(t, rebased[i].End, reparsed[i].End)
	}
}
