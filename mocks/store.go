package mocks

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pandodao/sac-wallet/core"
	"github.com/shopspring/decimal"
)

// NewWallet builds a wallet whose keys the fake chain accepts.
func NewWallet(userID int64, evmAddress, aptAddress string) *core.Wallet {
	return &core.Wallet{
		UserID: userID,
		Accounts: map[core.NetworkType]*core.Account{
			core.NetworkEth: {Address: evmAddress, PrivateKey: Key(evmAddress)},
			core.NetworkBfc: {Address: evmAddress, PrivateKey: Key(evmAddress)},
			core.NetworkApt: {Address: aptAddress, PrivateKey: Key(aptAddress)},
		},
	}
}

type Wallets struct {
	mux     sync.Mutex
	wallets map[int64]*core.Wallet
}

func NewWallets(wallets ...*core.Wallet) *Wallets {
	s := &Wallets{wallets: map[int64]*core.Wallet{}}
	for _, w := range wallets {
		s.wallets[w.UserID] = w
	}

	return s
}

func (s *Wallets) Create(_ context.Context, w *core.Wallet) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	if _, ok := s.wallets[w.UserID]; ok {
		return fmt.Errorf("wallet %d exists", w.UserID)
	}

	s.wallets[w.UserID] = w
	return nil
}

func (s *Wallets) Find(_ context.Context, userID int64) (*core.Wallet, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	w, ok := s.wallets[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, core.ErrWalletNotFound)
	}

	return w, nil
}

func (s *Wallets) List(context.Context) ([]*core.Wallet, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	var out []*core.Wallet
	for _, w := range s.wallets {
		out = append(out, w)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

type spendingKey struct {
	userID  int64
	network core.NetworkType
	token   string
}

// Spendings mirrors the sql ledger: all-or-nothing batches, idempotent per trace.
type Spendings struct {
	mux      sync.Mutex
	amounts  map[spendingKey]decimal.Decimal
	applied  map[string]map[spendingKey]bool
	Adjusted int
}

func NewSpendings() *Spendings {
	return &Spendings{
		amounts: map[spendingKey]decimal.Decimal{},
		applied: map[string]map[spendingKey]bool{},
	}
}

func (s *Spendings) Set(userID int64, network core.NetworkType, token string, amount decimal.Decimal) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.amounts[spendingKey{userID, network, token}] = amount
}

func (s *Spendings) Find(_ context.Context, userID int64, network core.NetworkType, token string) (decimal.Decimal, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.amounts[spendingKey{userID, network, token}], nil
}

func (s *Spendings) Adjust(_ context.Context, traceID, _ string, entries []*core.SpendingEntry) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	next := map[spendingKey]decimal.Decimal{}
	for _, e := range entries {
		k := spendingKey{e.UserID, e.Network, e.Token}
		if e.Delta.IsZero() || s.applied[traceID][k] {
			continue
		}

		v, ok := next[k]
		if !ok {
			v = s.amounts[k]
		}

		v = v.Add(e.Delta)
		if v.IsNegative() {
			return fmt.Errorf("adjust %d %s/%s by %s: %w", e.UserID, e.Network, e.Token, e.Delta, core.ErrInsufficientSpending)
		}

		next[k] = v
	}

	if len(next) == 0 {
		return nil
	}

	if s.applied[traceID] == nil {
		s.applied[traceID] = map[spendingKey]bool{}
	}

	for k, v := range next {
		s.amounts[k] = v
		s.applied[traceID][k] = true
	}

	s.Adjusted++
	return nil
}

func (s *Spendings) Applied(_ context.Context, traceID string) (bool, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	return len(s.applied[traceID]) > 0, nil
}

type Withdrawals struct {
	mux         sync.Mutex
	withdrawals []*core.Withdrawal
	Errors      map[string]string
}

func NewWithdrawals() *Withdrawals {
	return &Withdrawals{Errors: map[string]string{}}
}

func (s *Withdrawals) Create(_ context.Context, w *core.Withdrawal) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	for _, v := range s.withdrawals {
		if v.ReqID == w.ReqID {
			return fmt.Errorf("duplicate req %s", w.ReqID)
		}
	}

	if w.Status == 0 {
		w.Status = core.WithdrawalStatusPending
	}

	w.ID = uint64(len(s.withdrawals) + 1)
	s.withdrawals = append(s.withdrawals, w)
	return nil
}

func (s *Withdrawals) FindReq(_ context.Context, reqID string) (*core.Withdrawal, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	for _, w := range s.withdrawals {
		if w.ReqID == reqID {
			return w, nil
		}
	}

	return nil, sql.ErrNoRows
}

func (s *Withdrawals) ListPending(_ context.Context, limit int) ([]*core.Withdrawal, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	var out []*core.Withdrawal
	for _, w := range s.withdrawals {
		if w.Status == core.WithdrawalStatusPending && len(out) < limit {
			out = append(out, w)
		}
	}

	return out, nil
}

func (s *Withdrawals) RecordHash(_ context.Context, reqID, hash string) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	for _, w := range s.withdrawals {
		if w.ReqID == reqID && w.Status == core.WithdrawalStatusPending {
			w.Hash = hash
			w.Status = core.WithdrawalStatusHashRecorded
			return nil
		}
	}

	return fmt.Errorf("optimistic lock failed")
}

func (s *Withdrawals) RecordError(_ context.Context, w *core.Withdrawal, errText string) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	s.Errors[w.ReqID] = errText
	if w.Status == core.WithdrawalStatusPending {
		w.Status = core.WithdrawalStatusErrored
	}

	return nil
}

type ownerKey struct {
	address string
	network core.NetworkType
}

type Nfts struct {
	mux    sync.Mutex
	owners map[ownerKey][]string
}

func NewNfts() *Nfts {
	return &Nfts{owners: map[ownerKey][]string{}}
}

func (s *Nfts) ListOwned(_ context.Context, address string) ([]*core.NftOwnership, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	var out []*core.NftOwnership
	for _, n := range core.Networks {
		for _, id := range s.owners[ownerKey{address, n}] {
			out = append(out, &core.NftOwnership{Address: address, Network: n, TokenID: id})
		}
	}

	return out, nil
}

func (s *Nfts) FindOwned(_ context.Context, address string, network core.NetworkType, tokenID string) (*core.NftOwnership, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	for _, id := range s.owners[ownerKey{address, network}] {
		if id == tokenID {
			return &core.NftOwnership{Address: address, Network: network, TokenID: id}, nil
		}
	}

	return nil, sql.ErrNoRows
}

func (s *Nfts) Replace(_ context.Context, address string, network core.NetworkType, tokenIDs []string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.owners[ownerKey{address, network}] = append([]string(nil), tokenIDs...)
	return nil
}

type UserNfts struct {
	mux  sync.Mutex
	nfts []*core.UserNft
}

func NewUserNfts(nfts ...*core.UserNft) *UserNfts {
	return &UserNfts{nfts: nfts}
}

func (s *UserNfts) ListToken(_ context.Context, tokenID string) ([]*core.UserNft, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	var out []*core.UserNft
	for _, n := range s.nfts {
		if n.TokenID == tokenID {
			v := *n
			out = append(out, &v)
		}
	}

	return out, nil
}

func (s *UserNfts) Save(_ context.Context, nft *core.UserNft) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	v := *nft
	for idx, n := range s.nfts {
		if n.UserID == nft.UserID && n.TokenID == nft.TokenID {
			s.nfts[idx] = &v
			return nil
		}
	}

	s.nfts = append(s.nfts, &v)
	return nil
}

func (s *UserNfts) Delete(_ context.Context, userID int64, tokenID string) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	out := s.nfts[:0]
	for _, n := range s.nfts {
		if n.UserID != userID || n.TokenID != tokenID {
			out = append(out, n)
		}
	}

	s.nfts = out
	return nil
}

type Intents struct {
	mux     sync.Mutex
	intents map[string]*core.Intent
	seq     uint64

	// FailUpdates fails the next n updates into FailState.
	FailState   core.IntentState
	FailUpdates int
}

func NewIntents() *Intents {
	return &Intents{intents: map[string]*core.Intent{}}
}

func (s *Intents) Create(_ context.Context, intent *core.Intent) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	if _, ok := s.intents[intent.TraceID]; ok {
		return fmt.Errorf("duplicate intent %s", intent.TraceID)
	}

	if intent.State == 0 {
		intent.State = core.IntentStateInitiated
	}

	s.seq++
	intent.ID = s.seq
	intent.CreatedAt = time.Now()
	intent.UpdatedAt = intent.CreatedAt

	v := *intent
	s.intents[intent.TraceID] = &v
	return nil
}

func (s *Intents) Update(_ context.Context, intent *core.Intent, to core.IntentState) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	if to == s.FailState && s.FailUpdates > 0 {
		s.FailUpdates--
		return fmt.Errorf("intent %s: connection reset", intent.TraceID)
	}

	stored, ok := s.intents[intent.TraceID]
	if !ok || stored.State != intent.State {
		return fmt.Errorf("intent %s: optimistic lock failed at state %s", intent.TraceID, intent.State)
	}

	intent.State = to
	intent.UpdatedAt = time.Now()

	v := *intent
	s.intents[intent.TraceID] = &v
	return nil
}

func (s *Intents) FindTrace(_ context.Context, traceID string) (*core.Intent, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	i, ok := s.intents[traceID]
	if !ok {
		return nil, sql.ErrNoRows
	}

	v := *i
	return &v, nil
}

func (s *Intents) ListStates(_ context.Context, states []core.IntentState, before time.Time, limit int) ([]*core.Intent, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	var out []*core.Intent
	for _, i := range s.intents {
		for _, state := range states {
			if i.State == state && i.UpdatedAt.Before(before) {
				v := *i
				out = append(out, &v)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

// Kinds lists stored intents of kind, oldest first.
func (s *Intents) Kinds(kind core.IntentKind) []*core.Intent {
	s.mux.Lock()
	defer s.mux.Unlock()

	var out []*core.Intent
	for _, i := range s.intents {
		if i.Kind == kind {
			v := *i
			out = append(out, &v)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
