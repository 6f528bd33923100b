package commands

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/chipledger/internal/db"
	"github.com/susu3304/chipledger/internal/ledger"
	"github.com/susu3304/chipledger/internal/poker"
)

// Poker answers the /poker command for the group linked to a channel.
type Poker struct {
	svc *poker.Service
	fmt Formatter
}

func NewPoker(svc *poker.Service, f Formatter) *Poker {
	return &Poker{svc: svc, fmt: f}
}

// Request is a /poker invocation stripped of the Discord session.
type Request struct {
	GuildID   int64
	ChannelID string
	UserID    string
	Sub       *discordgo.ApplicationCommandInteractionDataOption
}

func (p *Poker) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		respondText(s, i, "サブコマンドが指定されていません")
		return
	}
	respondText(s, i, p.Run(context.Background(), Request{
		GuildID:   ParseGuildID(i.GuildID),
		ChannelID: i.ChannelID,
		UserID:    invokerID(i),
		Sub:       data.Options[0],
	}))
}

// Run executes the subcommand and returns the reply text.
func (p *Poker) Run(ctx context.Context, req Request) string {
	if req.Sub.Name == "link" {
		return p.link(ctx, req)
	}

	group, err := p.svc.GroupByChannel(ctx, req.ChannelID)
	if errors.Is(err, poker.ErrNotFound) {
		return "このチャンネルはグループに紐付けられていません。`/poker link` で紐付けてください"
	}
	if err != nil {
		return p.failed(req, err)
	}

	switch req.Sub.Name {
	case "report":
		session, msg := p.latest(ctx, group)
		if session == nil {
			return msg
		}
		report, err := p.svc.Report(ctx, session.ID)
		if err != nil {
			return p.failed(req, err)
		}
		return ReportMessage(p.fmt, report)
	case "payouts":
		session, msg := p.latest(ctx, group)
		if session == nil {
			return msg
		}
		plan, err := p.svc.PayoutPlan(ctx, session.ID)
		if err != nil {
			return p.failed(req, err)
		}
		return PayoutMessage(p.fmt, plan)
	case "paid":
		return p.paid(ctx, req, group)
	case "stats":
		name := getStringOption(req.Sub.Options, "player")
		if name == nil {
			return "プレイヤー名の指定が必要です"
		}
		player, err := p.svc.PlayerByName(ctx, group.ID, *name)
		if err != nil {
			return fmt.Sprintf("プレイヤー %s が見つかりません", *name)
		}
		stats, err := p.svc.PlayerStats(ctx, group.ID, player.ID)
		if err != nil {
			return p.failed(req, err)
		}
		return StatsMessage(p.fmt, stats)
	case "remind":
		session, msg := p.latest(ctx, group)
		if session == nil {
			return msg
		}
		plan, err := p.svc.PayoutPlan(ctx, session.ID)
		if err != nil {
			return p.failed(req, err)
		}
		if msg := ReminderMessage(p.fmt, plan); msg != "" {
			return msg
		}
		return "未払いの精算はありません"
	default:
		return "未知のサブコマンドです"
	}
}

func (p *Poker) link(ctx context.Context, req Request) string {
	groupID := getStringOption(req.Sub.Options, "group")
	if groupID == nil || *groupID == "" {
		return "グループIDの指定が必要です"
	}
	group, err := p.svc.Group(ctx, req.UserID, *groupID)
	switch {
	case errors.Is(err, poker.ErrNotFound):
		return "グループが見つかりません"
	case errors.Is(err, poker.ErrForbidden):
		return "このグループのオーナーのみ紐付けできます"
	case err != nil:
		return p.failed(req, err)
	}
	if err := p.svc.LinkChannel(ctx, group.ID, req.GuildID, req.ChannelID); err != nil {
		return p.failed(req, err)
	}
	return fmt.Sprintf("このチャンネルをグループ「%s」に紐付けました", group.Name)
}

func (p *Poker) paid(ctx context.Context, req Request, group *db.Group) string {
	payerName := getStringOption(req.Sub.Options, "payer")
	payeeName := getStringOption(req.Sub.Options, "payee")
	amountOpt := getStringOption(req.Sub.Options, "amount")
	if payerName == nil || payeeName == nil || amountOpt == nil {
		return "payer, payee, amount の指定が必要です"
	}
	amount, err := ledger.ParseAmount(*amountOpt)
	if err != nil || amount <= 0 {
		return "金額が正しくありません"
	}
	payer, err := p.svc.PlayerByName(ctx, group.ID, *payerName)
	if err != nil {
		return fmt.Sprintf("プレイヤー %s が見つかりません", *payerName)
	}
	payee, err := p.svc.PlayerByName(ctx, group.ID, *payeeName)
	if err != nil {
		return fmt.Sprintf("プレイヤー %s が見つかりません", *payeeName)
	}
	session, msg := p.latest(ctx, group)
	if session == nil {
		return msg
	}
	memo := ""
	if m := getStringOption(req.Sub.Options, "memo"); m != nil {
		memo = *m
	}

	remaining, err := p.svc.RecordPayment(ctx, session.ID, payer.ID, payee.ID, amount, memo, req.UserID)
	if errors.Is(err, poker.ErrNotFound) {
		return fmt.Sprintf("%s から %s への未払いはありません", payer.Name, payee.Name)
	}
	if err != nil {
		return p.failed(req, err)
	}
	if remaining == 0 {
		return fmt.Sprintf("%s → %s: %s の支払いを記録しました。精算完了です", payer.Name, payee.Name, p.fmt.Amount(amount))
	}
	return fmt.Sprintf("%s → %s: %s の支払いを記録しました。残り %s", payer.Name, payee.Name, p.fmt.Amount(amount), p.fmt.Amount(remaining))
}

// latest returns the newest session of group, or nil and a reply explaining
// why there is none.
func (p *Poker) latest(ctx context.Context, group *db.Group) (*ledger.GameSession, string) {
	session, err := p.svc.LatestSession(ctx, group.ID)
	if errors.Is(err, poker.ErrNotFound) {
		return nil, "このグループにはまだセッションがありません"
	}
	if err != nil {
		log.Printf("poker: failed to load latest session of group %s: %v", group.ID, err)
		return nil, "セッションの取得に失敗しました"
	}
	return session, ""
}

func (p *Poker) failed(req Request, err error) string {
	log.Printf("poker: /poker %s in channel %s failed: %v", req.Sub.Name, req.ChannelID, err)
	return "処理に失敗しました"
}
