package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPasswordPolicyTag(t *testing.T) {
	tests := []struct {
		pwd   string
		attrs []string
		want  string
	}{
		{pwd: "Ab1#", want: pwdMinLenTag},
		{pwd: "Ab1# defg", want: pwdNoSpaceTag},
		{pwd: "1234567890", want: pwdNotAllNumTag},
		{pwd: "abcdefg1#", want: pwdComplexityTag},
		{pwd: "ABCDEFG1#", want: pwdComplexityTag},
		{pwd: "Abcdefgh#", want: pwdComplexityTag},
		{pwd: "Abcdefgh1", want: pwdComplexityTag},
		{pwd: "Tinaturner1!", attrs: []string{"Tina Turner", "tina@example.com"}, want: pwdAttrSimTag},
		{pwd: "School@123", want: pwdNoCommonTag},
		{pwd: "Xy7#kqPlm2", attrs: []string{"Tina Turner", "tina@example.com"}},
		{pwd: "Xy7#kqPlm2"},
	}
	for _, tt := range tests {
		t.Run(tt.pwd, func(t *testing.T) {
			assert.Equal(t, tt.want, passwordPolicyTag(tt.pwd, tt.attrs...))
		})
	}
}

func TestCommonPasswordsSorted(t *testing.T) {
	assert.NotEmpty(t, commonPasswords)
	assert.IsIncreasing(t, commonPasswords)
}
