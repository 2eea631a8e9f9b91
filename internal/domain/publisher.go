package domain

import "context"

// Publisher creates and edits board entries on the remote board channel.
type Publisher interface {
	Create(ctx context.Context, summary string, author Author) (entryID string, err error)
	Edit(ctx context.Context, entryID, summary string, author Author) error
	// CrossReference posts a link from the board channel back to the source message.
	CrossReference(ctx context.Context, boardChannelID, guildID, channelID, messageID string) error
}
