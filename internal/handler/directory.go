package handler

import (
	"numrent/internal/domain"

	tele "gopkg.in/telebot.v3"
)

// Directory implements service.MembershipDirectory on top of the bot API
type Directory struct {
	bot *tele.Bot
}

// NewDirectory creates a membership directory backed by the bot
func NewDirectory(bot *tele.Bot) *Directory {
	return &Directory{bot: bot}
}

// MemberStatus resolves the user's role in a community chat
func (d *Directory) MemberStatus(communityID, userID int64) (domain.MemberStatus, error) {
	member, err := d.bot.ChatMemberOf(&tele.Chat{ID: communityID}, &tele.User{ID: userID})
	if err != nil {
		return domain.StatusOther, err
	}

	switch member.Role {
	case tele.Creator:
		return domain.StatusOwner, nil
	case tele.Administrator:
		return domain.StatusAdmin, nil
	case tele.Member:
		return domain.StatusMember, nil
	default:
		return domain.StatusOther, nil
	}
}
