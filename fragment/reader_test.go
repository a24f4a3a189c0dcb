package fragment_test

import (
	"bytes"
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/t9t/gosmdev/fragment"
)

func init() {
	rand.Seed(time.Now().UTC().UnixNano())
}

func TestFragmentReader_Sequential(t *testing.T) {
	testData := generateTestData()

	fragments := []fragment.Fragment{
		{Offset: 0, Length: 147},
		{Offset: 147, Length: 1198},
		{Offset: 1345, Length: 1711},
		{Offset: 3056, Length: 463},
		{Offset: 3519, Length: 1534},
		{Offset: 5053, Length: 701},
		{Offset: 5754, Length: 1351},
		{Offset: 7105, Length: 703},
		{Offset: 7808, Length: 1948},
		{Offset: 9756, Length: 484},
	}

	r := fragment.NewReader(bytes.NewReader(testData), fragments)

	data, err := io.ReadAll(r)
	require.Nilf(t, err, "unable to read: %v", err)

	assert.Equal(t, testData, data)
}

func TestFragmentReader_NonSequential(t *testing.T) {
	testData := generateTestData()

	fragments := []fragment.Fragment{
		{Offset: 3756, Length: 1810},
		{Offset: 6645, Length: 3423},
		{Offset: 803, Length: 6154},
	}

	r := fragment.NewReader(bytes.NewReader(testData), fragments)

	data, err := io.ReadAll(r)
	require.Nilf(t, err, "unable to read: %v", err)

	expected := make([]byte, 0)
	expected = append(expected, testData[3756:3756+1810]...)
	expected = append(expected, testData[6645:6645+3423]...)
	expected = append(expected, testData[803:803+6154]...)

	assert.Equal(t, expected, data)
}

func TestFragmentReader_SkipsEmptyFragments(t *testing.T) {
	testData := generateTestData()

	fragments := []fragment.Fragment{
		{Offset: 10, Length: 20},
		{Offset: 500, Length: 0},
		{Offset: 40, Length: 5},
	}

	r := fragment.NewReader(bytes.NewReader(testData), fragments)

	data, err := io.ReadAll(r)
	require.Nilf(t, err, "unable to read: %v", err)

	expected := append(append([]byte{}, testData[10:30]...), testData[40:45]...)
	assert.Equal(t, expected, data)
}

func generateTestData() []byte {
	ret := make([]byte, 10240)
	_, _ = rand.Read(ret)
	return ret
}
