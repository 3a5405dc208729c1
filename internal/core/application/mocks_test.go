package application_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
)

// ports.TransactionRepository
type mockTxRepository struct {
	mock.Mock
}

func (m *mockTxRepository) Announce(
	ctx context.Context, tx domain.SignedTransaction,
) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *mockTxRepository) AnnounceAggregateBonded(
	ctx context.Context, tx domain.SignedTransaction,
) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *mockTxRepository) AnnounceAggregateBondedCosignature(
	ctx context.Context, cosignature domain.CosignatureSignedTransaction,
) error {
	args := m.Called(ctx, cosignature)
	return args.Error(0)
}

func (m *mockTxRepository) GetTransactionStatus(
	ctx context.Context, hash string,
) (*domain.TransactionStatus, error) {
	args := m.Called(ctx, hash)
	var res *domain.TransactionStatus
	if a := args.Get(0); a != nil {
		res = a.(*domain.TransactionStatus)
	}
	return res, args.Error(1)
}

func (m *mockTxRepository) GetPartialTransaction(
	ctx context.Context, hash string,
) (*domain.TransactionInfo, error) {
	args := m.Called(ctx, hash)
	var res *domain.TransactionInfo
	if a := args.Get(0); a != nil {
		res = a.(*domain.TransactionInfo)
	}
	return res, args.Error(1)
}

// ports.MultisigRepository
type mockMultisigRepository struct {
	mock.Mock
}

func (m *mockMultisigRepository) GetMultisigAccountInfo(
	ctx context.Context, addr domain.Address,
) (*domain.MultisigEntry, error) {
	args := m.Called(ctx, addr)
	var res *domain.MultisigEntry
	if a := args.Get(0); a != nil {
		res = a.(*domain.MultisigEntry)
	}
	return res, args.Error(1)
}

func (m *mockMultisigRepository) GetMultisigAccountGraphInfo(
	ctx context.Context, addr domain.Address,
) (domain.MultisigGraph, error) {
	args := m.Called(ctx, addr)
	var res domain.MultisigGraph
	if a := args.Get(0); a != nil {
		res = a.(domain.MultisigGraph)
	}
	return res, args.Error(1)
}

// ports.NamespaceRepository
type mockNamespaceRepository struct {
	mock.Mock
}

func (m *mockNamespaceRepository) GetAccountsNames(
	ctx context.Context, addresses []domain.Address,
) (map[domain.Address][]string, error) {
	args := m.Called(ctx, addresses)
	var res map[domain.Address][]string
	if a := args.Get(0); a != nil {
		res = a.(map[domain.Address][]string)
	}
	return res, args.Error(1)
}

// ports.CosignatureSigner
type mockSigner struct {
	mock.Mock
	publicKey string
}

func (m *mockSigner) PublicKey() string {
	return m.publicKey
}

func (m *mockSigner) SignCosignature(
	ctx context.Context, tx domain.TransactionInfo,
) (*domain.CosignatureSignedTransaction, error) {
	args := m.Called(ctx, tx)
	var res *domain.CosignatureSignedTransaction
	if a := args.Get(0); a != nil {
		res = a.(*domain.CosignatureSignedTransaction)
	}
	return res, args.Error(1)
}

// fakeListener is a ports.Listener whose channels are fed by the tests.
// Channels are buffered so that events can be queued before they're read.
type fakeListener struct {
	openErr      error
	confirmedErr error

	chConfirmed    chan domain.TransactionInfo
	chStatus       chan domain.TransactionStatusError
	chPartial      chan domain.TransactionInfo
	chCosignatures chan domain.CosignatureSignedTransaction
	chErrors       chan error

	lock       *sync.Mutex
	open       bool
	openCount  atomic.Int32
	closeCount atomic.Int32
	cancels    atomic.Int32
	subscribed []string
}

func newFakeListener() *fakeListener {
	return &fakeListener{
		chConfirmed:    make(chan domain.TransactionInfo, 10),
		chStatus:       make(chan domain.TransactionStatusError, 10),
		chPartial:      make(chan domain.TransactionInfo, 10),
		chCosignatures: make(chan domain.CosignatureSignedTransaction, 10),
		chErrors:       make(chan error, 10),
		lock:           &sync.Mutex{},
	}
}

func (l *fakeListener) Open(_ context.Context) error {
	l.openCount.Add(1)
	if l.openErr != nil {
		return l.openErr
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	l.open = true
	return nil
}

func (l *fakeListener) Close() error {
	l.closeCount.Add(1)
	l.lock.Lock()
	defer l.lock.Unlock()
	l.open = false
	return nil
}

func (l *fakeListener) IsOpen() bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.open
}

func (l *fakeListener) Status(
	addr domain.Address,
) (<-chan domain.TransactionStatusError, ports.CancelFn, error) {
	l.track("status", addr)
	return l.chStatus, l.cancelFn(), nil
}

func (l *fakeListener) Confirmed(
	addr domain.Address, _ ...ports.SubscribeOption,
) (<-chan domain.TransactionInfo, ports.CancelFn, error) {
	if l.confirmedErr != nil {
		return nil, nil, l.confirmedErr
	}
	l.track("confirmedAdded", addr)
	return l.chConfirmed, l.cancelFn(), nil
}

func (l *fakeListener) UnconfirmedAdded(
	addr domain.Address,
) (<-chan domain.TransactionInfo, ports.CancelFn, error) {
	l.track("unconfirmedAdded", addr)
	return make(chan domain.TransactionInfo), l.cancelFn(), nil
}

func (l *fakeListener) UnconfirmedRemoved(
	addr domain.Address,
) (<-chan string, ports.CancelFn, error) {
	l.track("unconfirmedRemoved", addr)
	return make(chan string), l.cancelFn(), nil
}

func (l *fakeListener) CosignatureAdded(
	addr domain.Address,
) (<-chan domain.CosignatureSignedTransaction, ports.CancelFn, error) {
	l.track("cosignature", addr)
	return l.chCosignatures, l.cancelFn(), nil
}

func (l *fakeListener) AggregateBondedAdded(
	addr domain.Address,
) (<-chan domain.TransactionInfo, ports.CancelFn, error) {
	l.track("partialAdded", addr)
	return l.chPartial, l.cancelFn(), nil
}

func (l *fakeListener) AggregateBondedRemoved(
	addr domain.Address,
) (<-chan string, ports.CancelFn, error) {
	l.track("partialRemoved", addr)
	return make(chan string), l.cancelFn(), nil
}

func (l *fakeListener) Errors() <-chan error {
	return l.chErrors
}

func (l *fakeListener) subscriptions() []string {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]string{}, l.subscribed...)
}

func (l *fakeListener) track(topic string, addr domain.Address) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.subscribed = append(l.subscribed, fmt.Sprintf("%s/%s", topic, addr))
}

func (l *fakeListener) cancelFn() ports.CancelFn {
	once := &sync.Once{}
	return func() {
		once.Do(func() {
			l.cancels.Add(1)
		})
	}
}

func randomHash() string {
	return strings.ToUpper(randomHex(32))
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

func randomPublicKey() string {
	pubkey, _, _ := ed25519.GenerateKey(nil)
	return strings.ToUpper(hex.EncodeToString(pubkey))
}

// newSignedPair returns a hash lock and the aggregate bonded transaction it
// locks funds for, both signed by the same account.
func newSignedPair() (domain.SignedTransaction, domain.SignedTransaction) {
	signer := randomPublicKey()
	lock := domain.SignedTransaction{
		Payload:         randomHex(120),
		Hash:            randomHash(),
		SignerPublicKey: signer,
		Type:            domain.TransactionTypeHashLock,
		NetworkType:     domain.TestNet,
	}
	partial := domain.SignedTransaction{
		Payload:         randomHex(300),
		Hash:            randomHash(),
		SignerPublicKey: signer,
		Type:            domain.TransactionTypeAggregateBonded,
		NetworkType:     domain.TestNet,
	}
	return lock, partial
}
