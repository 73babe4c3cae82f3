package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithContext(t *testing.T) {
	assert.Nil(t, WithContext(nil, "ignored"))

	cause := New("dial tcp: connection refused")
	err := WithContext(WithContext(cause, "dial"), "connect")
	assert.EqualError(t, err, "connect: dial: dial tcp: connection refused")
	assert.Equal(t, cause, RootCause(err))
}

func TestGetPrintableMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		exp  string
	}{
		{
			name: "PlainError",
			err:  New("boom"),
			exp:  "boom",
		},
		{
			name: "FriendlyError",
			err:  NewFriendlyError("check the %s config", "server"),
			exp:  "check the server config",
		},
		{
			name: "WrappedFriendlyError",
			err:  WithContext(NewFriendlyError("roots are misconfigured"), "sync"),
			exp:  "roots are misconfigured",
		},
		{
			name: "WrappedPlainError",
			err:  WithContext(New("boom"), "sync"),
			exp:  "sync: boom",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.exp, GetPrintableMessage(test.err))
		})
	}
}

func TestTypedErrors(t *testing.T) {
	assert.EqualError(t, FileNotFound{Path: "/tmp/dne"}, `"/tmp/dne" does not exist`)
	assert.EqualError(t, BadMapping{Path: "/other/file", Root: "/data/"},
		`path "/other/file" is not under root "/data/"`)

	connErr := ConnectivityError{Server: "ftp.example.com", Err: New("timed out")}
	assert.EqualError(t, connErr, `unable to reach "ftp.example.com": timed out`)
	assert.EqualError(t, connErr.Unwrap(), "timed out")

	listErr := ListingError{Side: "remote", Err: New("550 denied")}
	assert.EqualError(t, listErr, "unable to list remote tree: 550 denied")
}
