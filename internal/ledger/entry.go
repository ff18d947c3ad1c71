package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/franksunye/incentive-ledger/internal/contract"
)

// Reward type labels emitted by the reward engine.
const (
	// RewardTypeLucky marks a lucky-number reward: the contract's position
	// in the campaign sequence matched the campaign's lucky digit.
	RewardTypeLucky = "lucky-number"

	// RewardTypeProgressive marks a tier award. Emitted once per awarded
	// tier name, so RewardTypes and RewardNames stay parallel.
	RewardTypeProgressive = "progressive"
)

// Notification status values. A fresh entry starts pending; the external
// notifier flips it through Store.MarkNotified.
const (
	NotificationPending = "N"
	NotificationSent    = "Y"
	NotificationFailed  = "F"
)

// NoRemark is the remark for agents with every tier already attained.
const NoRemark = "none"

// Entry is one row of the performance ledger: the input contract plus
// everything the engine computed for it. Write-once.
type Entry struct {
	CampaignID string

	// Input fields, carried through from the contract record.
	ContractID            string
	HousekeeperID         string
	ServiceProviderName   string
	ContractAmount        decimal.Decimal
	PaidAmount            decimal.Decimal
	DifferenceAmount      decimal.Decimal
	SignedAt              string
	CreatedAt             string
	ServiceAppointmentNum string
	ConversionRate        decimal.Decimal
	AverageTicket         decimal.Decimal

	// SequenceInCampaign is the 1-based position of this contract among
	// every contract ever recorded for the campaign, historical runs
	// included.
	SequenceInCampaign int

	// AgentKey is the accumulator key derived under the campaign's
	// agent-key policy.
	AgentKey string

	// Running totals for the agent as of this contract (inclusive).
	AgentRunningCount      int
	AgentRunningAmount     decimal.Decimal
	AgentPerformanceAmount decimal.Decimal

	BonusPoolAmount decimal.Decimal

	RewardActivated bool

	// RewardTypes and RewardNames are parallel ordered lists: element i of
	// RewardNames is the reward of kind RewardTypes[i].
	RewardTypes []string
	RewardNames []string

	NotificationSent string

	// Remark is the distance-to-next-tier text, or NoRemark.
	Remark string

	// RegisteredAt is the write timestamp. Storage-internal: excluded from
	// canonical form and backend equivalence.
	RegisteredAt time.Time
}

// BuildInput carries everything the entry builder needs. All reward fields
// come from the reward engine; totals come from the accumulator snapshot.
type BuildInput struct {
	CampaignID string
	Record     contract.Record

	Sequence int
	AgentKey string

	RunningCount      int
	RunningAmount     decimal.Decimal
	PerformanceAmount decimal.Decimal

	BonusPoolRatio decimal.Decimal

	RewardTypes []string
	RewardNames []string
	Remark      string

	RegisteredAt time.Time
}

// BuildEntry assembles the ledger entry for a newly-processed contract.
// Pure field mapping; the only arithmetic is the bonus pool contribution.
func BuildEntry(in BuildInput) Entry {
	return Entry{
		CampaignID:            in.CampaignID,
		ContractID:            in.Record.ContractID,
		HousekeeperID:         in.Record.HousekeeperID,
		ServiceProviderName:   in.Record.ServiceProviderName,
		ContractAmount:        in.Record.ContractAmount,
		PaidAmount:            in.Record.PaidAmount,
		DifferenceAmount:      in.Record.DifferenceAmount,
		SignedAt:              in.Record.SignedAt,
		CreatedAt:             in.Record.CreatedAt,
		ServiceAppointmentNum: in.Record.ServiceAppointmentNum,
		ConversionRate:        in.Record.ConversionRate,
		AverageTicket:         in.Record.AverageTicket,

		SequenceInCampaign: in.Sequence,
		AgentKey:           in.AgentKey,

		AgentRunningCount:      in.RunningCount,
		AgentRunningAmount:     in.RunningAmount,
		AgentPerformanceAmount: in.PerformanceAmount,

		BonusPoolAmount: in.Record.ContractAmount.Mul(in.BonusPoolRatio),

		RewardActivated: len(in.RewardTypes) > 0,
		RewardTypes:     append([]string(nil), in.RewardTypes...),
		RewardNames:     append([]string(nil), in.RewardNames...),

		NotificationSent: NotificationPending,
		Remark:           in.Remark,
		RegisteredAt:     in.RegisteredAt,
	}
}
