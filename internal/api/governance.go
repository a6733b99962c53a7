package api

import (
	"context"
	"strings"
)

// DAOAPI wraps /dao
type DAOAPI struct{ base }

// CreateProposal opens a vote on an on-chain signal
func (d *DAOAPI) CreateProposal(ctx context.Context, signalID, description string) (*TxResponse, error) {
	signalID = strings.TrimSpace(signalID)
	if signalID == "" {
		return nil, invalid("signalId is required")
	}
	if strings.TrimSpace(description) == "" {
		return nil, invalid("description is required")
	}

	body := map[string]string{"signalId": signalID, "description": description}
	var out TxResponse
	if err := d.write(ctx, "/dao/proposal", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Proposal returns one proposal
func (d *DAOAPI) Proposal(ctx context.Context, proposalID string) (*ProposalResponse, error) {
	id, err := requireID("proposalId", proposalID)
	if err != nil {
		return nil, err
	}
	var out ProposalResponse
	if err := d.client.FetchJSON(ctx, "/dao/proposal/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Vote casts a vote for or against a proposal
func (d *DAOAPI) Vote(ctx context.Context, proposalID string, support bool) (*TxResponse, error) {
	proposalID = strings.TrimSpace(proposalID)
	if proposalID == "" {
		return nil, invalid("proposalId is required")
	}

	body := struct {
		ProposalID string `json:"proposalId"`
		Support    bool   `json:"support"`
	}{proposalID, support}
	var out TxResponse
	if err := d.write(ctx, "/dao/vote", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VotingPower returns the governance weight of address, or of the backend wallet when empty
func (d *DAOAPI) VotingPower(ctx context.Context, address string) (*VotingPowerResponse, error) {
	var out VotingPowerResponse
	if err := d.client.FetchJSON(ctx, withOptional("/dao/voting-power", address), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RewardsAPI wraps /rewards
type RewardsAPI struct{ base }

// Distribute sends reward tokens to one address
func (r *RewardsAPI) Distribute(ctx context.Context, address string, amount float64, reason string) (*DistributionResponse, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, invalid("userAddress is required")
	}
	if amount <= 0 {
		return nil, invalid("amount must be positive")
	}

	body := struct {
		UserAddress string  `json:"userAddress"`
		Amount      float64 `json:"amount"`
		Reason      string  `json:"reason,omitempty"`
	}{address, amount, reason}
	var out DistributionResponse
	if err := r.write(ctx, "/rewards/distribute", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BulkDistribute sends reward tokens to several addresses in one call
func (r *RewardsAPI) BulkDistribute(ctx context.Context, recipients []RewardRecipient) (*DistributionResponse, error) {
	if len(recipients) == 0 {
		return nil, invalid("recipients must not be empty")
	}
	for i, rc := range recipients {
		if strings.TrimSpace(rc.Address) == "" {
			return nil, invalid("recipients[%d].address is required", i)
		}
		if rc.Amount <= 0 {
			return nil, invalid("recipients[%d].amount must be positive", i)
		}
	}

	body := map[string][]RewardRecipient{"recipients": recipients}
	var out DistributionResponse
	if err := r.write(ctx, "/rewards/bulk-distribute", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Balance returns the reward balance of address, or of the backend wallet when empty
func (r *RewardsAPI) Balance(ctx context.Context, address string) (*RewardBalanceResponse, error) {
	var out RewardBalanceResponse
	if err := r.client.FetchJSON(ctx, withOptional("/rewards/balance", address), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
