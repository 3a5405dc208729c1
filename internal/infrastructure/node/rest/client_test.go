package rest_test

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/infrastructure/node/rest"
)

var ctx = context.Background()

func TestNewClient(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		client, err := rest.NewClient("http://localhost:3000", time.Second)
		require.NoError(t, err)
		require.NotNil(t, client)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, u := range []string{"", "localhost:3000", "ws://localhost:3000"} {
			client, err := rest.NewClient(u, time.Second)
			require.Error(t, err)
			require.Nil(t, client)
		}
	})
}

func TestAnnounce(t *testing.T) {
	payload := randomHex(64)
	var partialCalls, lockCalls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPut, r.Method)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

			switch r.URL.Path {
			case "/transactions":
				lockCalls.Add(1)
				require.Equal(t, payload, body["payload"])
			case "/transactions/partial":
				partialCalls.Add(1)
				require.Equal(t, payload, body["payload"])
			case "/transactions/cosignature":
				require.Equal(t, "AB", body["parentHash"])
				require.Equal(t, "0", body["version"])
			default:
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusAccepted)
			fmt.Fprint(w, `{"message":"packet 9 was pushed to the network"}`)
		},
	))
	defer server.Close()

	client, err := rest.NewClient(server.URL, time.Second)
	require.NoError(t, err)

	tx := domain.SignedTransaction{Payload: payload, Hash: randomHex(32)}
	require.NoError(t, client.Announce(ctx, tx))
	require.NoError(t, client.AnnounceAggregateBonded(ctx, tx))
	require.NoError(t, client.AnnounceAggregateBondedCosignature(
		ctx, domain.CosignatureSignedTransaction{ParentHash: "AB"},
	))
	require.Equal(t, int32(1), lockCalls.Load())
	require.Equal(t, int32(1), partialCalls.Load())
}

func TestAnnounceRejected(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusConflict)
			fmt.Fprint(w, `{"code":"InvalidArgument","message":"payload is invalid"}`)
		},
	))
	defer server.Close()

	client, err := rest.NewClient(server.URL, time.Second)
	require.NoError(t, err)

	err = client.Announce(ctx, domain.SignedTransaction{Payload: "00"})
	require.Error(t, err)

	var httpErr *rest.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusConflict, httpErr.StatusCode)
	require.Equal(t, "InvalidArgument", httpErr.Code)
	// Announcements are never retried.
	require.Equal(t, int32(1), calls.Load())
}

func TestGetTransactionStatus(t *testing.T) {
	hash := strings.ToUpper(randomHex(32))
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			// The first attempt fails to exercise the retry.
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			require.Equal(t, "/transactionStatus/"+hash, r.URL.Path)
			fmt.Fprintf(
				w, `{"group":"failed","code":"Failure_Core_Past_Deadline","hash":"%s","deadline":"1000","height":"0"}`,
				hash,
			)
		},
	))
	defer server.Close()

	client, err := rest.NewClient(server.URL, time.Second)
	require.NoError(t, err)

	status, err := client.GetTransactionStatus(ctx, hash)
	require.NoError(t, err)
	require.NotNil(t, status)
	require.Equal(t, hash, status.Hash)
	require.Equal(t, domain.TransactionGroupFailed, status.Group)
	require.Equal(t, "Failure_Core_Past_Deadline", status.Code)
	require.Equal(t, uint64(1000), status.Deadline)
	require.True(t, status.IsFailed())
	require.Equal(t, int32(2), calls.Load())
}

func TestGetPartialTransaction(t *testing.T) {
	hash := strings.ToUpper(randomHex(32))
	signer := strings.ToUpper(randomHex(32))
	cosigner := strings.ToUpper(randomHex(32))

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/transactions/partial/"+hash, r.URL.Path)
			fmt.Fprintf(w, `{
				"meta": {"hash": "%s", "height": "0"},
				"transaction": {
					"signerPublicKey": "%s",
					"type": 16961,
					"deadline": "123456",
					"cosignatures": [
						{"version": "0", "signerPublicKey": "%s", "signature": "AA"}
					]
				}
			}`, strings.ToLower(hash), signer, strings.ToLower(cosigner))
		},
	))
	defer server.Close()

	client, err := rest.NewClient(server.URL, time.Second)
	require.NoError(t, err)

	tx, err := client.GetPartialTransaction(ctx, hash)
	require.NoError(t, err)
	require.NotNil(t, tx)
	require.Equal(t, hash, tx.Hash)
	require.Equal(t, domain.TransactionTypeAggregateBonded, tx.Type)
	require.Equal(t, uint64(123456), tx.Deadline)
	require.Len(t, tx.Cosignatures, 1)
	require.True(t, tx.HasSigner(signer))
	require.True(t, tx.HasSigner(cosigner))
	require.False(t, tx.HasSigner(randomHex(32)))
}

func TestGetMultisigAccountGraphInfo(t *testing.T) {
	anchor := randomAddress()
	ancestor := randomAddress()
	notMultisig := randomAddress()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case fmt.Sprintf("/account/%s/multisig/graph", anchor):
				fmt.Fprintf(w, `[
					{"level": -1, "multisigEntries": [{"multisig": {
						"accountAddress": "%s", "minApproval": 1, "minRemoval": 1,
						"cosignatoryAddresses": ["%s"], "multisigAddresses": []
					}}]},
					{"level": 0, "multisigEntries": [{"multisig": {
						"accountAddress": "%s", "minApproval": 0, "minRemoval": 0,
						"cosignatoryAddresses": [], "multisigAddresses": ["%s"]
					}}]}
				]`, ancestor.Hex(), anchor.Hex(), anchor.Hex(), ancestor.Hex())
			case fmt.Sprintf("/account/%s/multisig", anchor):
				fmt.Fprintf(w, `{"multisig": {
					"version": 1, "accountAddress": "%s", "minApproval": 0,
					"minRemoval": 0, "cosignatoryAddresses": [],
					"multisigAddresses": ["%s"]
				}}`, anchor.Hex(), ancestor.Hex())
			default:
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"code":"ResourceNotFound","message":"no resource exists"}`)
			}
		},
	))
	defer server.Close()

	client, err := rest.NewClient(server.URL, time.Second)
	require.NoError(t, err)

	graph, err := client.GetMultisigAccountGraphInfo(ctx, anchor)
	require.NoError(t, err)
	require.Len(t, graph, 2)
	require.Equal(t, -1, graph.MinLevel())
	require.True(t, graph[-1][0].AccountAddress.Equals(ancestor))
	require.True(t, graph[-1][0].HasCosigner(anchor))
	require.True(t, graph[0][0].IsCosignerOf(ancestor))

	info, err := client.GetMultisigAccountInfo(ctx, anchor)
	require.NoError(t, err)
	require.NotNil(t, info)
	require.True(t, info.IsCosignerOf(ancestor))
	require.False(t, info.IsMultisig())

	graph, err = client.GetMultisigAccountGraphInfo(ctx, notMultisig)
	require.NoError(t, err)
	require.True(t, graph.IsEmpty())

	info, err = client.GetMultisigAccountInfo(ctx, notMultisig)
	require.NoError(t, err)
	require.Nil(t, info)
}

func TestGetAccountsNames(t *testing.T) {
	alice := randomAddress()
	bob := randomAddress()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/namespaces/account/names", r.URL.Path)

			var body struct {
				Addresses []string `json:"addresses"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Len(t, body.Addresses, 2)

			fmt.Fprintf(w, `{"accountNames": [
				{"address": "%s", "names": ["alice", "alice.wallet"]},
				{"address": "%s", "names": []}
			]}`, alice.Hex(), bob.Hex())
		},
	))
	defer server.Close()

	client, err := rest.NewClient(server.URL, time.Second)
	require.NoError(t, err)

	names, err := client.GetAccountsNames(ctx, []domain.Address{alice, bob})
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "alice.wallet"}, names[alice])
	require.Empty(t, names[bob])

	names, err = client.GetAccountsNames(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, names)
}

func randomHex(len int) string {
	buf := make([]byte, len)
	// nolint
	rand.Read(buf)
	return hex.EncodeToString(buf)
}

func randomAddress() domain.Address {
	var keyHash [20]byte
	// nolint
	rand.Read(keyHash[:])
	return domain.NewAddress(domain.TestNet, keyHash)
}
