// Package proofs handles attestations produced by the browser proof extension
// and their on-chain byte encoding.
package proofs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ClaimInfo describes what the extension observed.
type ClaimInfo struct {
	Provider   string `json:"provider"`
	Parameters string `json:"parameters"`
	Context    string `json:"context"`
}

// CompleteClaimData identifies a single signed claim.
type CompleteClaimData struct {
	Identifier string `json:"identifier"`
	Owner      string `json:"owner"`
	TimestampS uint32 `json:"timestampS"`
	Epoch      uint32 `json:"epoch"`
}

// SignedClaim is a claim plus its witness signatures.
type SignedClaim struct {
	Claim      CompleteClaimData `json:"claim"`
	Signatures []string          `json:"signatures"`
}

// Proof is a parsed attestation, ready for encoding.
type Proof struct {
	ClaimInfo      ClaimInfo   `json:"claimInfo"`
	SignedClaim    SignedClaim `json:"signedClaim"`
	IsAppclipProof bool        `json:"isAppclipProof"`
}

// rawExtensionProof matches the wire shape emitted by the proof extension.
type rawExtensionProof struct {
	Claim struct {
		Provider   string      `json:"provider"`
		Parameters string      `json:"parameters"`
		Context    string      `json:"context"`
		Identifier string      `json:"identifier"`
		Owner      string      `json:"owner"`
		TimestampS json.Number `json:"timestampS"`
		Epoch      json.Number `json:"epoch"`
	} `json:"claim"`
	Signatures struct {
		ClaimSignature map[string]byte `json:"claimSignature"`
	} `json:"signatures"`
}

// ParseExtensionProof converts a raw extension proof into a Proof.
// The claim signature arrives as an index-keyed byte object and is
// reassembled into a hex string in index order.
func ParseExtensionProof(raw json.RawMessage) (*Proof, error) {
	var ext rawExtensionProof
	if err := json.Unmarshal(raw, &ext); err != nil {
		return nil, fmt.Errorf("malformed extension proof: %w", err)
	}
	if ext.Claim.Provider == "" || ext.Claim.Identifier == "" {
		return nil, fmt.Errorf("malformed extension proof: missing claim fields")
	}

	timestampS, err := parseUint32(ext.Claim.TimestampS)
	if err != nil {
		return nil, fmt.Errorf("malformed extension proof timestamp: %w", err)
	}
	epoch, err := parseUint32(ext.Claim.Epoch)
	if err != nil {
		return nil, fmt.Errorf("malformed extension proof epoch: %w", err)
	}

	signature, err := byteMapToHex(ext.Signatures.ClaimSignature)
	if err != nil {
		return nil, fmt.Errorf("malformed extension proof signature: %w", err)
	}

	return &Proof{
		ClaimInfo: ClaimInfo{
			Provider:   ext.Claim.Provider,
			Parameters: ext.Claim.Parameters,
			Context:    ext.Claim.Context,
		},
		SignedClaim: SignedClaim{
			Claim: CompleteClaimData{
				Identifier: ext.Claim.Identifier,
				Owner:      ext.Claim.Owner,
				TimestampS: timestampS,
				Epoch:      epoch,
			},
			Signatures: []string{signature},
		},
		IsAppclipProof: false,
	}, nil
}

// ParseAppClipProof parses a proof submitted by the iOS app clip. Unlike the
// extension format, the payload already carries signatures as hex strings.
func ParseAppClipProof(raw json.RawMessage) (*Proof, error) {
	var p Proof
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("malformed app clip proof: %w", err)
	}
	if p.ClaimInfo.Provider == "" || p.SignedClaim.Claim.Identifier == "" {
		return nil, fmt.Errorf("malformed app clip proof: missing claim fields")
	}
	if len(p.SignedClaim.Signatures) == 0 {
		return nil, fmt.Errorf("malformed app clip proof: no signatures")
	}
	p.IsAppclipProof = true
	return &p, nil
}

func parseUint32(n json.Number) (uint32, error) {
	v, err := strconv.ParseUint(n.String(), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func byteMapToHex(m map[string]byte) (string, error) {
	if len(m) == 0 {
		return "", fmt.Errorf("empty signature")
	}
	indices := make([]int, 0, len(m))
	for k := range m {
		i, err := strconv.Atoi(k)
		if err != nil {
			return "", fmt.Errorf("non-numeric signature index %q", k)
		}
		indices = append(indices, i)
	}
	sort.Ints(indices)

	buf := make([]byte, len(indices))
	for pos, i := range indices {
		buf[pos] = m[strconv.Itoa(i)]
	}
	return hexutil.Encode(buf), nil
}

// contractProof mirrors the ABI tuple layout the escrow contract expects:
// (claimInfo, signedClaim, isAppclipProof).
type contractProof struct {
	ClaimInfo struct {
		Provider   string
		Parameters string
		Context    string
	}
	SignedClaim struct {
		Claim struct {
			Identifier [32]byte
			Owner      common.Address
			TimestampS uint32
			Epoch      uint32
		}
		Signatures [][]byte
	}
	IsAppclipProof bool
}

var proofArguments = mustProofArguments()

func mustProofArguments() abi.Arguments {
	proofType, err := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "claimInfo", Type: "tuple", Components: []abi.ArgumentMarshaling{
			{Name: "provider", Type: "string"},
			{Name: "parameters", Type: "string"},
			{Name: "context", Type: "string"},
		}},
		{Name: "signedClaim", Type: "tuple", Components: []abi.ArgumentMarshaling{
			{Name: "claim", Type: "tuple", Components: []abi.ArgumentMarshaling{
				{Name: "identifier", Type: "bytes32"},
				{Name: "owner", Type: "address"},
				{Name: "timestampS", Type: "uint32"},
				{Name: "epoch", Type: "uint32"},
			}},
			{Name: "signatures", Type: "bytes[]"},
		}},
		{Name: "isAppclipProof", Type: "bool"},
	})
	if err != nil {
		panic(fmt.Sprintf("invalid proof tuple type: %v", err))
	}
	return abi.Arguments{{Type: proofType}}
}

// EncodeProofAsBytes packs a proof into the fixed tuple layout consumed
// by fulfillAndOfframp.
func EncodeProofAsBytes(p *Proof) ([]byte, error) {
	var cp contractProof
	cp.ClaimInfo.Provider = p.ClaimInfo.Provider
	cp.ClaimInfo.Parameters = p.ClaimInfo.Parameters
	cp.ClaimInfo.Context = p.ClaimInfo.Context
	cp.SignedClaim.Claim.Identifier = common.HexToHash(p.SignedClaim.Claim.Identifier)
	cp.SignedClaim.Claim.Owner = common.HexToAddress(p.SignedClaim.Claim.Owner)
	cp.SignedClaim.Claim.TimestampS = p.SignedClaim.Claim.TimestampS
	cp.SignedClaim.Claim.Epoch = p.SignedClaim.Claim.Epoch

	cp.SignedClaim.Signatures = make([][]byte, 0, len(p.SignedClaim.Signatures))
	for _, sig := range p.SignedClaim.Signatures {
		decoded, err := hexutil.Decode(sig)
		if err != nil {
			return nil, fmt.Errorf("invalid proof signature %q: %w", sig, err)
		}
		cp.SignedClaim.Signatures = append(cp.SignedClaim.Signatures, decoded)
	}
	cp.IsAppclipProof = p.IsAppclipProof

	return proofArguments.Pack(cp)
}

// DecodeProofBytes unpacks an encoded proof back into its parsed form.
func DecodeProofBytes(data []byte) (*Proof, error) {
	out, err := proofArguments.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("decode proof: %w", err)
	}
	cp := abi.ConvertType(out[0], new(contractProof)).(*contractProof)

	p := &Proof{
		ClaimInfo: ClaimInfo{
			Provider:   cp.ClaimInfo.Provider,
			Parameters: cp.ClaimInfo.Parameters,
			Context:    cp.ClaimInfo.Context,
		},
		SignedClaim: SignedClaim{
			Claim: CompleteClaimData{
				Identifier: hexutil.Encode(cp.SignedClaim.Claim.Identifier[:]),
				Owner:      cp.SignedClaim.Claim.Owner.Hex(),
				TimestampS: cp.SignedClaim.Claim.TimestampS,
				Epoch:      cp.SignedClaim.Claim.Epoch,
			},
		},
		IsAppclipProof: cp.IsAppclipProof,
	}
	for _, sig := range cp.SignedClaim.Signatures {
		p.SignedClaim.Signatures = append(p.SignedClaim.Signatures, hexutil.Encode(sig))
	}
	return p, nil
}
