package web

import (
	"time"

	"parley/domain"
	"parley/services"

	"github.com/samber/lo"
)

type userBody struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type conversationResponse struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Description      string   `json:"description,omitempty"`
	Admin            string   `json:"admin"`
	Members          []string `json:"members"`
	MemberCandidates []string `json:"member_candidates"`
	NotPermitted     []string `json:"not_permitted"`
}

type messageBody struct {
	ID        string    `json:"id"`
	SentBy    string    `json:"sent_by"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type resolvedMessageResponse struct {
	messageBody
	Sender userBody `json:"sender"`
}

type detailResponse struct {
	conversationResponse
	AdminUser         userBody                  `json:"admin_user"`
	MemberUsers       []userBody                `json:"member_users"`
	CandidateUsers    []userBody                `json:"candidate_users"`
	NotPermittedUsers []userBody                `json:"not_permitted_users"`
	Messages          []resolvedMessageResponse `json:"messages"`
}

func toUserBody(u domain.User) userBody {
	return userBody{ID: u.ID, Username: u.Username}
}

func toConversationResponse(c domain.Conversation) conversationResponse {
	return conversationResponse{
		ID:               c.ID,
		Name:             c.Name,
		Description:      c.Description,
		Admin:            c.Admin,
		Members:          c.Members,
		MemberCandidates: c.MemberCandidates,
		NotPermitted:     c.NotPermitted,
	}
}

func toMessageBody(m domain.Message) messageBody {
	return messageBody{
		ID:        m.ID.String(),
		SentBy:    m.SentBy,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func toMessageResponse(m services.ResolvedMessage) resolvedMessageResponse {
	return resolvedMessageResponse{
		messageBody: toMessageBody(m.Message),
		Sender:      toUserBody(m.Sender),
	}
}

func toDetailResponse(d services.ConversationDetail) detailResponse {
	return detailResponse{
		conversationResponse: toConversationResponse(d.Conversation),
		AdminUser:            toUserBody(d.Admin),
		MemberUsers: lo.Map(d.Members, func(u domain.User, _ int) userBody {
			return toUserBody(u)
		}),
		CandidateUsers: lo.Map(d.MemberCandidates, func(u domain.User, _ int) userBody {
			return toUserBody(u)
		}),
		NotPermittedUsers: lo.Map(d.NotPermitted, func(u domain.User, _ int) userBody {
			return toUserBody(u)
		}),
		Messages: lo.Map(d.Messages, func(m services.ResolvedMessage, _ int) resolvedMessageResponse {
			return toMessageResponse(m)
		}),
	}
}
