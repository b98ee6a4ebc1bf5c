package core

import "strings"

type NetworkType string

const (
	NetworkEth NetworkType = "eth"
	NetworkBfc NetworkType = "bfc"
	NetworkApt NetworkType = "apt"
)

var Networks = []NetworkType{NetworkEth, NetworkBfc, NetworkApt}

func (n NetworkType) Valid() bool {
	switch n {
	case NetworkEth, NetworkBfc, NetworkApt:
		return true
	}

	return false
}

// IsEVM reports whether the network shares the secp256k1 account of the eth family.
func (n NetworkType) IsEVM() bool {
	return n == NetworkEth || n == NetworkBfc
}

func ParseNetwork(s string) (NetworkType, error) {
	n := NetworkType(strings.ToLower(s))
	if !n.Valid() {
		return "", &UnsupportedNetworkError{Network: s}
	}

	return n, nil
}

type TokenType string

const (
	TokenEth  TokenType = "eth"
	TokenEsat TokenType = "esat"
	TokenBsat TokenType = "bsat"
	TokenBfc  TokenType = "bfc"
	TokenUsdc TokenType = "usdc"
	TokenUsdt TokenType = "usdt"
	TokenApt  TokenType = "apt"
)

var Tokens = []TokenType{TokenEth, TokenEsat, TokenBsat, TokenBfc, TokenUsdc, TokenUsdt, TokenApt}

type tokenInfo struct {
	network NetworkType
	name    string
}

var tokenTable = map[TokenType]tokenInfo{
	TokenEth:  {NetworkEth, "eth"},
	TokenEsat: {NetworkEth, "sat"},
	TokenBsat: {NetworkBfc, "sat"},
	TokenBfc:  {NetworkBfc, "bfc"},
	TokenUsdc: {NetworkEth, "usdc"},
	TokenUsdt: {NetworkEth, "usdt"},
	TokenApt:  {NetworkApt, "apt"},
}

func ParseToken(s string) (TokenType, error) {
	t := TokenType(strings.ToLower(s))
	if _, ok := tokenTable[t]; !ok {
		return "", &UnsupportedNetworkError{Token: s}
	}

	return t, nil
}

func TokenTypeToNetwork(t TokenType) (NetworkType, error) {
	info, ok := tokenTable[t]
	if !ok {
		return "", &UnsupportedNetworkError{Token: string(t)}
	}

	return info.network, nil
}

func TokenTypeToTokenName(t TokenType) (string, error) {
	info, ok := tokenTable[t]
	if !ok {
		return "", &UnsupportedNetworkError{Token: string(t)}
	}

	return info.name, nil
}

// Asset is a resolved token: the network it lives on and its on-chain symbol.
type Asset struct {
	Type    TokenType
	Network NetworkType
	Symbol  string
}

// Native reports whether the asset is the network's own coin.
func (a Asset) Native() bool {
	return a.Symbol == string(a.Network)
}

func ResolveAsset(t TokenType) (Asset, error) {
	info, ok := tokenTable[t]
	if !ok {
		return Asset{}, &UnsupportedNetworkError{Token: string(t)}
	}

	return Asset{Type: t, Network: info.network, Symbol: info.name}, nil
}

// NativeAsset returns the coin asset of a network.
func NativeAsset(n NetworkType) (Asset, error) {
	if !n.Valid() {
		return Asset{}, &UnsupportedNetworkError{Network: string(n)}
	}

	return Asset{Type: TokenType(n), Network: n, Symbol: string(n)}, nil
}
