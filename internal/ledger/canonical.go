package ledger

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Columns is the order-significant column set of a ledger row. The file
// backend writes exactly this header; the canonical form uses the same
// order minus the trailing write timestamp.
var Columns = []string{
	"campaign_id",
	"contract_id",
	"housekeeper_id",
	"service_provider_name",
	"contract_amount",
	"paid_amount",
	"difference_amount",
	"signed_at",
	"created_at",
	"service_appointment_num",
	"conversion_rate",
	"average_ticket",
	"seq_in_campaign",
	"agent_key",
	"agent_running_count",
	"agent_running_amount",
	"agent_performance_amount",
	"bonus_pool_amount",
	"reward_activated",
	"reward_types",
	"reward_names",
	"notification_sent",
	"remark",
	"registered_at",
}

// rewardSeparator joins the ordered reward lists into one column.
// Reward names never contain it.
const rewardSeparator = "|"

// AmountString renders a money amount at the ledger's fixed scale.
// Every amount in every backend and golden file goes through this, so the
// representation can never drift between stores.
func AmountString(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FieldsOf renders an entry as its full row, one string per column,
// in Columns order.
//
// Text fields are NFC-normalized and stripped of the delimiter characters
// (tab, newline) so a row is always exactly one line.
func FieldsOf(e Entry) []string {
	return []string{
		text(e.CampaignID),
		text(e.ContractID),
		text(e.HousekeeperID),
		text(e.ServiceProviderName),
		AmountString(e.ContractAmount),
		AmountString(e.PaidAmount),
		AmountString(e.DifferenceAmount),
		text(e.SignedAt),
		text(e.CreatedAt),
		text(e.ServiceAppointmentNum),
		AmountString(e.ConversionRate),
		AmountString(e.AverageTicket),
		strconv.Itoa(e.SequenceInCampaign),
		text(e.AgentKey),
		strconv.Itoa(e.AgentRunningCount),
		AmountString(e.AgentRunningAmount),
		AmountString(e.AgentPerformanceAmount),
		AmountString(e.BonusPoolAmount),
		strconv.FormatBool(e.RewardActivated),
		strings.Join(e.RewardTypes, rewardSeparator),
		strings.Join(e.RewardNames, rewardSeparator),
		text(e.NotificationSent),
		text(e.Remark),
		e.RegisteredAt.UTC().Format(time.RFC3339Nano),
	}
}

// ParseFields is the inverse of FieldsOf.
func ParseFields(fields []string) (Entry, error) {
	if len(fields) != len(Columns) {
		return Entry{}, fmt.Errorf("ledger row has %d fields, want %d", len(fields), len(Columns))
	}

	var e Entry
	var err error

	amount := func(column, s string) decimal.Decimal {
		if err != nil {
			return decimal.Zero
		}
		var d decimal.Decimal
		d, err = decimal.NewFromString(s)
		if err != nil {
			err = fmt.Errorf("column %s: %w", column, err)
		}
		return d
	}
	integer := func(column, s string) int {
		if err != nil {
			return 0
		}
		var n int
		n, err = strconv.Atoi(s)
		if err != nil {
			err = fmt.Errorf("column %s: %w", column, err)
		}
		return n
	}

	e.CampaignID = fields[0]
	e.ContractID = fields[1]
	e.HousekeeperID = fields[2]
	e.ServiceProviderName = fields[3]
	e.ContractAmount = amount("contract_amount", fields[4])
	e.PaidAmount = amount("paid_amount", fields[5])
	e.DifferenceAmount = amount("difference_amount", fields[6])
	e.SignedAt = fields[7]
	e.CreatedAt = fields[8]
	e.ServiceAppointmentNum = fields[9]
	e.ConversionRate = amount("conversion_rate", fields[10])
	e.AverageTicket = amount("average_ticket", fields[11])
	e.SequenceInCampaign = integer("seq_in_campaign", fields[12])
	e.AgentKey = fields[13]
	e.AgentRunningCount = integer("agent_running_count", fields[14])
	e.AgentRunningAmount = amount("agent_running_amount", fields[15])
	e.AgentPerformanceAmount = amount("agent_performance_amount", fields[16])
	e.BonusPoolAmount = amount("bonus_pool_amount", fields[17])
	if err != nil {
		return Entry{}, err
	}

	e.RewardActivated, err = strconv.ParseBool(fields[18])
	if err != nil {
		return Entry{}, fmt.Errorf("column reward_activated: %w", err)
	}
	e.RewardTypes = splitRewards(fields[19])
	e.RewardNames = splitRewards(fields[20])
	e.NotificationSent = fields[21]
	e.Remark = fields[22]

	e.RegisteredAt, err = time.Parse(time.RFC3339Nano, fields[23])
	if err != nil {
		return Entry{}, fmt.Errorf("column registered_at: %w", err)
	}

	return e, nil
}

// CanonicalLine renders the backend-independent form of an entry: every
// column except the write timestamp, tab-joined.
func CanonicalLine(e Entry) string {
	fields := FieldsOf(e)
	return strings.Join(fields[:len(fields)-1], "\t")
}

// MarshalCanonical renders a whole entry list in canonical form, one line
// per entry. Two stores hold equivalent ledgers iff this output is
// byte-identical for both.
func MarshalCanonical(entries []Entry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		buf.WriteString(CanonicalLine(e))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func splitRewards(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, rewardSeparator)
}

// text normalizes a free-text field: NFC form, delimiter characters
// replaced so the row stays a single well-formed line.
func text(s string) string {
	s = norm.NFC.String(s)
	if strings.ContainsAny(s, "\t\n\r") {
		s = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(s)
	}
	return s
}
