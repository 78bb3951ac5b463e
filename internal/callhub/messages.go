package callhub

import (
	"context"
	"encoding/json"
	"log"

	"randomcall/backend/internal/models"
)

// HandleClientMessage routes a websocket message from a user.
func (c *Coordinator) HandleClientMessage(ctx context.Context, msg models.ClientMessage) {
	var err error
	switch msg.Type {
	case models.ClientJoin:
		err = c.JoinCall(ctx, msg.CallID, models.MatchUser{ID: msg.SenderID, Username: msg.Username})

	case models.ClientSignal:
		err = c.relaySignal(ctx, msg)

	case models.ClientHangup:
		reason := models.EndReasonUserEnded
		if r, ok := models.ParseEndReason(msg.Reason); ok {
			reason = r
		}
		_, err = c.EndCall(ctx, msg.CallID, msg.SenderID, reason)

	case models.ClientBackground:
		_, err = c.EndCall(ctx, msg.CallID, msg.SenderID, models.EndReasonAppBackground)

	case models.ClientCancel:
		err = c.CancelSearch(ctx, msg.SenderID)

	default:
		log.Printf("WARNING: Unknown message type %q from %s", msg.Type, msg.SenderID)
		return
	}

	if err != nil {
		log.Printf("WARNING: %s from %s failed: %v", msg.Type, msg.SenderID, err)
		payload, _ := json.Marshal(map[string]string{"code": ErrorCode(err), "request": msg.Type})
		c.notify(ctx, models.CallEvent{
			Type:      models.EventError,
			CallID:    msg.CallID,
			ToUserIDs: []string{msg.SenderID},
			Payload:   payload,
		})
	}
}

// relaySignal forwards SDP/ICE payloads to the other participant.
func (c *Coordinator) relaySignal(ctx context.Context, msg models.ClientMessage) error {
	peerID, err := c.PeerOf(ctx, msg.CallID, msg.SenderID)
	if err != nil {
		return err
	}
	c.notify(ctx, models.CallEvent{
		Type:      models.EventSignal,
		CallID:    msg.CallID,
		ToUserIDs: []string{peerID},
		FromUser:  msg.SenderID,
		Payload:   msg.Payload,
	})
	return nil
}
