package verify_test

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Mohsinsiddi/rafflekit/internal/contract"
	"github.com/Mohsinsiddi/rafflekit/internal/verify"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var target = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

func src() verify.Source {
	return verify.Source{
		ContractName:    "Raffle",
		Code:            "contract Raffle {}",
		CompilerVersion: "v0.8.7+commit.e28d00a7",
		Optimize:        true,
		Runs:            200,
	}
}

func writeJSON(w http.ResponseWriter, status, message, result string) {
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  status,
		"message": message,
		"result":  result,
	})
}

func newClient(t *testing.T, url string) *verify.Client {
	t.Helper()
	c, err := verify.New(url, "key", src(), verify.WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	return c
}

func TestNewRequiresKey(t *testing.T) {
	_, err := verify.New("http://localhost", "", src())
	assert.ErrorIs(t, err, verify.ErrNoAPIKey)
}

func TestSubmitSendsForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "verifysourcecode", r.PostForm.Get("action"))
		assert.Equal(t, "contract", r.PostForm.Get("module"))
		assert.Equal(t, target.Hex(), r.PostForm.Get("contractaddress"))
		assert.Equal(t, "Raffle", r.PostForm.Get("contractname"))
		assert.Equal(t, "1", r.PostForm.Get("optimizationUsed"))
		assert.Equal(t, "200", r.PostForm.Get("runs"))
		assert.Equal(t, "beef", r.PostForm.Get("constructorArguements"))
		writeJSON(w, "1", "OK", "guid-123")
	}))
	defer srv.Close()

	guid, err := newClient(t, srv.URL).Submit(context.Background(), target, []byte{0xbe, 0xef})
	require.NoError(t, err)
	assert.Equal(t, "guid-123", guid)
}

func TestVerifyPollsUntilPass(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeJSON(w, "1", "OK", "guid-1")
			return
		}
		assert.Equal(t, "checkverifystatus", r.URL.Query().Get("action"))
		assert.Equal(t, "guid-1", r.URL.Query().Get("guid"))
		if polls.Add(1) < 3 {
			writeJSON(w, "0", "NOTOK", "Pending in queue")
			return
		}
		writeJSON(w, "1", "OK", "Pass - Verified")
	}))
	defer srv.Close()

	require.NoError(t, newClient(t, srv.URL).Verify(context.Background(), target, nil))
	assert.Equal(t, int32(3), polls.Load())
}

func TestVerifyAlreadyVerified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, "0", "NOTOK", "Contract source code already verified")
	}))
	defer srv.Close()

	assert.NoError(t, newClient(t, srv.URL).Verify(context.Background(), target, nil))
}

func TestVerifyFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeJSON(w, "1", "OK", "guid-2")
			return
		}
		writeJSON(w, "0", "NOTOK", "Fail - Unable to verify")
	}))
	defer srv.Close()

	err := newClient(t, srv.URL).Verify(context.Background(), target, nil)
	assert.ErrorIs(t, err, verify.ErrVerificationFailed)
	assert.Contains(t, err.Error(), "Unable to verify")
}

func TestSubmitHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Submit(context.Background(), target, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestVerifyCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeJSON(w, "1", "OK", "guid-3")
			return
		}
		writeJSON(w, "0", "NOTOK", "Pending in queue")
	}))
	defer srv.Close()

	c, err := verify.New(srv.URL, "key", src(), verify.WithPollInterval(time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Verify(ctx, target, nil), context.DeadlineExceeded)
}

func TestConstructorArgs(t *testing.T) {
	coord := common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	var lane [32]byte
	lane[0] = 0xd8

	data, err := verify.ConstructorArgs(contract.GetBuiltinABI(contract.RaffleName),
		coord, uint64(1), lane, big.NewInt(30), big.NewInt(1e16), uint32(500000))
	require.NoError(t, err)
	// six static words
	assert.Len(t, data, 6*32)
	assert.Equal(t, coord.Bytes(), data[12:32])
	assert.Equal(t, byte(1), data[63])
	assert.Equal(t, byte(0xd8), data[64])
}

func TestConstructorArgsTypeMismatch(t *testing.T) {
	_, err := verify.ConstructorArgs(contract.GetBuiltinABI(contract.RaffleName), "not an address")
	assert.Error(t, err)
}
