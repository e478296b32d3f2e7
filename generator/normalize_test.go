package generator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeValidStory(t *testing.T) {
	raw := `{"name":"Ada Lovelace","title":"The First Programmer","content":"She imagined machines.","shareableQuote":"More than merely mortal."}`

	story, text, err := Normalize(raw)
	require.NoError(t, err)
	require.NotNil(t, story)

	assert.Equal(t, "Ada Lovelace", story.Name)
	assert.Equal(t, "The First Programmer", story.Title)
	assert.Equal(t, "She imagined machines.", story.Content)
	assert.Equal(t, "More than merely mortal.", story.ShareableQuote)
	assert.Empty(t, text)
}

func TestNormalizeFencedJSON(t *testing.T) {
	raw := "Here is the story:\n```json\n{\"name\":\"Ada\",\"content\":\"Body.\"}\n```\nEnjoy!"

	story, _, err := Normalize(raw)
	require.NoError(t, err)
	require.NotNil(t, story)
	assert.Equal(t, "Ada", story.Name)
	assert.Equal(t, "Body.", story.Content)
}

func TestNormalizeUnlabelledFence(t *testing.T) {
	raw := "```\n{\"name\":\"Ada\",\"content\":\"Body.\"}\n```"

	story, _, err := Normalize(raw)
	require.NoError(t, err)
	require.NotNil(t, story)
	assert.Equal(t, "Ada", story.Name)
}

func TestNormalizeRepairsLiteralControlChars(t *testing.T) {
	// Literal newline and tab inside the content value break strict parsing.
	raw := "{\"name\": \"Ada\", \"content\": \"line one\nline two\tend\"}"

	story, _, err := Normalize(raw)
	require.NoError(t, err)
	require.NotNil(t, story, "repair pass should recover the story")

	assert.Equal(t, "line one\nline two\tend", story.Content, "control characters must survive as real characters")
}

func TestNormalizeRepairsQuoteFieldToo(t *testing.T) {
	raw := "{\"name\": \"Ada\", \"content\": \"Body.\", \"shareableQuote\": \"first\nsecond\"}"

	story, _, err := Normalize(raw)
	require.NoError(t, err)
	require.NotNil(t, story)
	assert.Equal(t, "first\nsecond", story.ShareableQuote)
}

func TestNormalizeRepairPreservesEscapedQuotes(t *testing.T) {
	raw := "{\"name\": \"Ada\", \"content\": \"She said \\\"hi\\\"\nthen left.\"}"

	story, _, err := Normalize(raw)
	require.NoError(t, err)
	require.NotNil(t, story)
	assert.Equal(t, "She said \"hi\"\nthen left.", story.Content)
}

func TestNormalizeJSONRepairFallback(t *testing.T) {
	// Trailing comma defeats both the strict parse and the control-char pass.
	raw := `{"name":"Ada","content":"Body.",}`

	story, _, err := Normalize(raw)
	require.NoError(t, err)
	require.NotNil(t, story, "jsonrepair fallback should recover the story")
	assert.Equal(t, "Ada", story.Name)
	assert.Equal(t, "Body.", story.Content)
}

func TestNormalizeNameWithoutContentIsNotAStory(t *testing.T) {
	raw := `{"name":"X"}`

	story, text, err := Normalize(raw)
	require.NoError(t, err)
	assert.Nil(t, story)
	assert.Equal(t, raw, text, "raw text must be preserved verbatim")
}

func TestNormalizePlainTextDegrades(t *testing.T) {
	raw := "Once upon a time there was no JSON at all."

	story, text, err := Normalize(raw)
	require.NoError(t, err)
	assert.Nil(t, story)
	assert.Equal(t, raw, text)
}

func TestNormalizeEmptyInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t"} {
		story, text, err := Normalize(raw)
		require.Error(t, err)

		var normErr *NormalizationError
		assert.True(t, errors.As(err, &normErr))
		assert.Nil(t, story)
		assert.Empty(t, text)
	}
}

func TestNormalizeBlankFieldsAreNotAStory(t *testing.T) {
	raw := `{"name":"  ","content":"Body."}`

	story, text, err := Normalize(raw)
	require.NoError(t, err)
	assert.Nil(t, story)
	assert.Equal(t, raw, text)
}
