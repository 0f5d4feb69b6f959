// Package runtime adapts *gmail.Service and the auth bootstrap to the small
// client interface the services are written against.
package runtime

import (
	"context"
	"fmt"

	gmailapi "google.golang.org/api/gmail/v1"

	gc "github.com/calebdoyle/mailsift/internal/gmail"
)

type googleClient struct{ svc *gmailapi.Service }

func NewGoogleAPIClient(svc *gmailapi.Service) gc.Client { return &googleClient{svc} }

func (g *googleClient) List(
	ctx context.Context,
	q gc.Query,
	pageToken string,
	pageSize int,
) (gc.ListPage, error) {
	call := g.svc.Users.Messages.List("me").MaxResults(int64(pageSize))
	if q.Raw != "" {
		call = call.Q(q.Raw)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return gc.ListPage{}, err
	}
	page := gc.ListPage{NextPageToken: res.NextPageToken}
	for _, m := range res.Messages {
		page.IDs = append(page.IDs, gc.MessageID(m.Id))
	}
	return page, nil
}

func (g *googleClient) GetMetadata(
	ctx context.Context,
	id gc.MessageID,
	headers []string,
) (gc.MessageMeta, error) {
	msg, err := g.svc.Users.Messages.Get("me", string(id)).
		Format("metadata").
		MetadataHeaders(headers...).
		Context(ctx).Do()
	if err != nil {
		return gc.MessageMeta{}, err
	}
	meta := gc.MessageMeta{
		ID:      id,
		Headers: headerMap(msg.Payload),
		Date:    internalDate(msg),
	}
	for _, lid := range msg.LabelIds {
		meta.LabelIDs = append(meta.LabelIDs, gc.LabelID(lid))
	}
	return meta, nil
}

func (g *googleClient) GetFull(ctx context.Context, id gc.MessageID) (gc.Message, error) {
	msg, err := g.svc.Users.Messages.Get("me", string(id)).Format("full").Context(ctx).Do()
	if err != nil {
		return gc.Message{}, err
	}
	text, html := extractBody(msg.Payload)
	return gc.Message{
		ID:       id,
		Headers:  headerMap(msg.Payload),
		BodyText: text,
		BodyHTML: html,
		Date:     internalDate(msg),
	}, nil
}

func (g *googleClient) BatchModify(
	ctx context.Context,
	ids []gc.MessageID,
	ops gc.ModifyOps,
) error {
	req := &gmailapi.BatchModifyMessagesRequest{Ids: make([]string, 0, len(ids))}
	for _, id := range ids {
		req.Ids = append(req.Ids, string(id))
	}
	for _, l := range ops.AddLabels {
		req.AddLabelIds = append(req.AddLabelIds, string(l))
	}
	for _, l := range ops.RemoveLabels {
		req.RemoveLabelIds = append(req.RemoveLabelIds, string(l))
	}
	return g.svc.Users.Messages.BatchModify("me", req).Context(ctx).Do()
}

func (g *googleClient) ListLabels(
	ctx context.Context,
) (map[string]gc.LabelID, map[gc.LabelID]string, error) {
	res, err := g.svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, nil, err
	}
	byName := make(map[string]gc.LabelID, len(res.Labels))
	byID := make(map[gc.LabelID]string, len(res.Labels))
	for _, l := range res.Labels {
		byName[l.Name] = gc.LabelID(l.Id)
		byID[gc.LabelID(l.Id)] = l.Name
	}
	return byName, byID, nil
}

func (g *googleClient) CreateLabel(ctx context.Context, name string) (gc.LabelID, error) {
	created, err := g.svc.Users.Labels.Create("me", &gmailapi.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create label %q: %w", name, err)
	}
	return gc.LabelID(created.Id), nil
}
