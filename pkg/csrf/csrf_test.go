package csrf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openkcm/retrieval-gateway/pkg/csrf"
)

func TestCSRF(t *testing.T) {
	tests := []struct {
		name           string
		genKey         string // Key used to generate the CSRF token
		genFlowID      string // Flow ID used to generate the CSRF token
		validateKey    string // Key used to validate the token
		validateFlowID string // Flow ID used to validate the token
		wantValid      bool
	}{
		{
			name:           "Validate a token successfully",
			genKey:         "my-super-secret-key",
			genFlowID:      "some-flow-id",
			validateKey:    "my-super-secret-key",
			validateFlowID: "some-flow-id",
			wantValid:      true,
		},
		{
			name:           "Mismatched flow ID. Token is invalid",
			genKey:         "my-super-secret-key",
			genFlowID:      "some-flow-id",
			validateKey:    "my-super-secret-key",
			validateFlowID: "mismatched-flow-id",
			wantValid:      false,
		},
		{
			name:           "Mismatched key. Token is invalid",
			genKey:         "my-super-secret-key",
			genFlowID:      "some-flow-id",
			validateKey:    "mismatched-key",
			validateFlowID: "some-flow-id",
			wantValid:      false,
		},
		{
			name:           "Mismatched flow ID and key. Token is invalid",
			genKey:         "my-super-secret-key",
			genFlowID:      "some-flow-id",
			validateKey:    "mismatched-key",
			validateFlowID: "mismatched-flow-id",
			wantValid:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := csrf.NewToken(tt.genFlowID, []byte(tt.genKey))
			assert.Equal(t, tt.wantValid, csrf.Validate(token, tt.validateFlowID, []byte(tt.validateKey)))
		})
	}
}

func TestValidate_Malformed(t *testing.T) {
	key := []byte("my-super-secret-key")

	assert.False(t, csrf.Validate("", "flow", key))
	assert.False(t, csrf.Validate("not-a-token", "flow", key))
	assert.False(t, csrf.Validate("zz.zz", "flow", key))
}
