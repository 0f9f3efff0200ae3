package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeRoundTrip(t *testing.T) {
	cases := [][]string{
		{"2/5+1/2"},
		{"x=1", "y=2", ""},
		{"", ""},
		{"a\nb", "c\n--\nd"},
	}
	for _, answers := range cases {
		encoded := EncodeAnswers(answers)
		require.Equal(t, answers, DecodeAnswers(encoded, len(answers)))
	}
}

func TestDecodePadsAndTruncates(t *testing.T) {
	encoded := EncodeAnswers([]string{"a", "b", "c"})

	require.Equal(t, []string{"a", "b", "c", "", ""}, DecodeAnswers(encoded, 5))
	require.Equal(t, []string{"a", "b"}, DecodeAnswers(encoded, 2))
	require.Equal(t, []string{}, DecodeAnswers(encoded, 0))
	require.Equal(t, []string{}, DecodeAnswers(encoded, -3))
}

func TestDecodeSingleAnswerAgainstTwoExamples(t *testing.T) {
	answer := "x^2 = 4"
	examples := Zip([]string{"solve x^2=4", "solve y+1=0"}, answer)

	require.Len(t, examples, 2)
	require.Equal(t, Example{Index: 0, Statement: "solve x^2=4", Answer: answer}, examples[0])
	require.Equal(t, Example{Index: 1, Statement: "solve y+1=0", Answer: ""}, examples[1])
}

func TestSplitStatementsTrimsAndDropsBlank(t *testing.T) {
	content := "  first \r\n---\r\n\n---\nsecond\n---\n   "
	require.Equal(t, []string{"first", "second"}, SplitStatements(content))
	require.Empty(t, SplitStatements(""))
	require.Equal(t, "first\n---\nsecond", JoinStatements([]string{" first", "", "second "}))
}

func TestZipWithoutStatementsShowsEveryAnswerPart(t *testing.T) {
	examples := Zip(nil, "a"+Separator+"b")
	require.Equal(t, []Example{{Index: 0, Answer: "a"}, {Index: 1, Answer: "b"}}, examples)

	require.Equal(t, []Example{{Index: 0, Answer: ""}}, Zip(nil, ""))
}
