package whatsapp

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lojasmm/wamsg/internal/metrics"
	"github.com/lojasmm/wamsg/internal/thumbnail"
)

const (
	defaultThumbnailTimeout = 10 * time.Second
	nativeFlowVersion       = 1
)

// Builder maps a MessageIntent to exactly one payload variant.
type Builder struct {
	thumbs           thumbnail.Generator
	thumbnailTimeout time.Duration
	strict           bool
	log              *zap.Logger
}

type Option func(*Builder)

// WithThumbnails sets the generator used for product list header images.
// Without one, product lists are sent without a thumbnail.
func WithThumbnails(g thumbnail.Generator) Option {
	return func(b *Builder) { b.thumbs = g }
}

func WithThumbnailTimeout(d time.Duration) Option {
	return func(b *Builder) {
		if d > 0 {
			b.thumbnailTimeout = d
		}
	}
}

// WithStrict rejects intents with more than one discriminator and validates
// every built payload against the protocol schema.
func WithStrict(strict bool) Option {
	return func(b *Builder) { b.strict = strict }
}

func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		thumbnailTimeout: defaultThumbnailTimeout,
		log:              zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) Strict() bool { return b.strict }

// Build selects the first present discriminator in priority order (sections,
// productList, buttons, templateButtons, interactiveButtons) and builds that
// variant with its ContextInfo attached. Intents with none of them fall back
// to plain text.
func (b *Builder) Build(ctx context.Context, intent *MessageIntent) (Content, error) {
	c, err := b.build(ctx, intent)
	if err != nil {
		metrics.BuildErrors.WithLabelValues(string(ErrorTypeOf(err))).Inc()
		return nil, err
	}
	metrics.PayloadsBuilt.WithLabelValues(Variant(c)).Inc()
	b.log.Debug("payload built", zap.String("variant", Variant(c)))
	return c, nil
}

func (b *Builder) build(ctx context.Context, intent *MessageIntent) (Content, error) {
	if intent == nil {
		return nil, callerError("intent", "is nil")
	}

	in := *intent
	in.Mentions = slices.Clone(intent.Mentions)
	if err := in.normalizeJIDs(); err != nil {
		return nil, err
	}

	kinds := in.Discriminators()
	if b.strict && len(kinds) > 1 {
		return nil, callerError("intent", "ambiguous: %s are all set", strings.Join(kinds, ", "))
	}

	var (
		c   Content
		err error
	)
	switch {
	case in.Sections != nil:
		c, err = buildList(&in)
	case in.ProductList != nil:
		c, err = b.buildProductList(ctx, &in)
	case in.Buttons != nil:
		c, err = buildButtons(&in)
	case in.TemplateButtons != nil:
		c, err = buildTemplate(&in)
	case in.InteractiveButtons != nil:
		c, err = buildInteractive(&in)
	default:
		return buildText(&in)
	}
	if err != nil {
		return nil, err
	}

	c = withContext(c, in.normalizedContext())

	if b.strict {
		if err := ValidateContent(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func buildList(in *MessageIntent) (Content, error) {
	if len(in.Sections) == 0 {
		return nil, callerError("sections", "must not be empty")
	}
	sections := make([]Section, len(in.Sections))
	for i, s := range in.Sections {
		if len(s.Rows) == 0 {
			return nil, callerError("sections", "section %d has no rows", i)
		}
		for j, r := range s.Rows {
			if r.RowID == "" || r.Title == "" {
				return nil, callerError("sections", "section %d row %d needs rowId and title", i, j)
			}
		}
		sections[i] = Section{Title: s.Title, Rows: slices.Clone(s.Rows)}
	}

	return &ListMessage{
		Title:       in.Title,
		Description: in.Text,
		ButtonText:  in.ButtonText,
		FooterText:  in.Footer,
		Sections:    sections,
		ListType:    ListTypeSingleSelect,
	}, nil
}

func (b *Builder) buildProductList(ctx context.Context, in *MessageIntent) (Content, error) {
	if len(in.ProductList) == 0 {
		return nil, callerError("productList", "must not be empty")
	}
	if len(in.ProductList[0].Products) == 0 {
		return nil, callerError("productList", "first section has no products")
	}
	headerProduct := in.ProductList[0].Products[0].ProductID
	if headerProduct == "" {
		return nil, callerError("productList", "first product has no productId")
	}

	sections := make([]ProductSection, len(in.ProductList))
	for i, s := range in.ProductList {
		sections[i] = ProductSection{Title: s.Title, Products: slices.Clone(s.Products)}
	}

	var jpeg []byte
	if !in.Thumbnail.IsZero() {
		jpeg = b.resolveThumbnail(ctx, *in.Thumbnail)
	}

	return &ListMessage{
		Title:       in.Title,
		Description: in.Text,
		ButtonText:  in.ButtonText,
		FooterText:  in.Footer,
		ListType:    ListTypeProductList,
		ProductListInfo: &ProductListInfo{
			ProductSections: sections,
			HeaderImage: &ProductListHeaderImage{
				ProductID:     headerProduct,
				JPEGThumbnail: jpeg,
			},
			BusinessOwnerJID: in.BusinessOwnerJID,
		},
	}, nil
}

// resolveThumbnail makes one attempt at generating the header thumbnail. Any
// failure, including cancellation of ctx, yields nil: the list is sent
// without an image.
func (b *Builder) resolveThumbnail(ctx context.Context, src thumbnail.Source) []byte {
	if b.thumbs == nil {
		b.degrade(&BuildError{Type: ErrDegradedResource, Field: "thumbnail", Message: "no thumbnail generator configured"})
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, b.thumbnailTimeout)
	defer cancel()

	start := time.Now()
	th, err := b.thumbs.Generate(ctx, src, thumbnail.KindImage)
	metrics.ThumbnailDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		b.degrade(&BuildError{Type: ErrDegradedResource, Field: "thumbnail", Message: "generation failed", Err: err})
		return nil
	}
	if th == nil || len(th.JPEG) == 0 {
		b.degrade(&BuildError{Type: ErrDegradedResource, Field: "thumbnail", Message: "generator returned no data"})
		return nil
	}
	return th.JPEG
}

func (b *Builder) degrade(err *BuildError) {
	metrics.ThumbnailDegraded.Inc()
	b.log.Warn("sending product list without header thumbnail", zap.Error(err))
}

func buildButtons(in *MessageIntent) (Content, error) {
	if len(in.Buttons) == 0 {
		return nil, callerError("buttons", "must not be empty")
	}
	buttons := make([]Button, len(in.Buttons))
	for i, btn := range in.Buttons {
		if btn.ButtonID == "" {
			return nil, callerError("buttons", "button %d has no buttonId", i)
		}
		buttons[i] = Button{ButtonID: btn.ButtonID, Type: ButtonTypeResponse}
		if btn.ButtonText != nil {
			buttons[i].ButtonText = &ButtonText{DisplayText: btn.ButtonText.DisplayText}
		}
	}

	msg := &ButtonsMessage{
		ContentText: in.Text,
		FooterText:  in.Footer,
		Buttons:     buttons,
		HeaderType:  ButtonsHeaderEmpty,
	}
	if in.Title != "" {
		msg.Text = in.Title
		msg.HeaderType = ButtonsHeaderText
	}
	return msg, nil
}

func buildTemplate(in *MessageIntent) (Content, error) {
	if len(in.TemplateButtons) == 0 {
		return nil, callerError("templateButtons", "must not be empty")
	}
	buttons := make([]HydratedTemplateButton, len(in.TemplateButtons))
	used := make(map[uint32]bool, len(in.TemplateButtons))
	for i, tb := range in.TemplateButtons {
		set := 0
		for _, ok := range []bool{tb.QuickReplyButton != nil, tb.URLButton != nil, tb.CallButton != nil} {
			if ok {
				set++
			}
		}
		if set != 1 {
			return nil, callerError("templateButtons", "button %d must set exactly one of quickReplyButton, urlButton, callButton", i)
		}
		if tb.Index != 0 {
			if used[tb.Index] {
				return nil, callerError("templateButtons", "button %d reuses index %d", i, tb.Index)
			}
			used[tb.Index] = true
		}
		buttons[i] = tb
	}

	// Unset indexes take the lowest free positions, so replies map back to
	// exactly one button.
	next := uint32(1)
	for i := range buttons {
		if buttons[i].Index != 0 {
			continue
		}
		for used[next] {
			next++
		}
		buttons[i].Index = next
		used[next] = true
	}

	hydrated := HydratedFourRowTemplate{
		HydratedTitleText:   in.Title,
		HydratedContentText: in.Text,
		HydratedFooterText:  in.Footer,
		HydratedButtons:     buttons,
	}
	fourRow := hydrated
	fourRow.HydratedButtons = slices.Clone(buttons)

	return &TemplateMessage{
		FourRowTemplate:  &fourRow,
		HydratedTemplate: &hydrated,
	}, nil
}

func buildInteractive(in *MessageIntent) (Content, error) {
	if len(in.InteractiveButtons) == 0 {
		return nil, callerError("interactiveButtons", "must not be empty")
	}
	buttons := make([]NativeFlowButton, len(in.InteractiveButtons))
	for i, btn := range in.InteractiveButtons {
		if btn.Name == "" {
			return nil, callerError("interactiveButtons", "button %d has no name", i)
		}
		if btn.ButtonParamsJSON == "" {
			btn.ButtonParamsJSON = "{}"
		}
		if !json.Valid([]byte(btn.ButtonParamsJSON)) {
			return nil, callerError("interactiveButtons", "button %d buttonParamsJson is not valid JSON", i)
		}
		buttons[i] = btn
	}

	msg := &InteractiveMessage{
		NativeFlowMessage: &NativeFlowMessage{
			Buttons:        buttons,
			MessageVersion: nativeFlowVersion,
		},
	}
	if in.Title != "" || in.Subtitle != "" {
		msg.Header = &InteractiveHeader{Title: in.Title, Subtitle: in.Subtitle}
	}
	if in.Text != "" {
		msg.Body = &InteractiveBody{Text: in.Text}
	}
	if in.Footer != "" {
		msg.Footer = &InteractiveFooter{Text: in.Footer}
	}
	return msg, nil
}

// buildText is the non-interactive fallback. ContextInfo is only attached
// when there is something in it.
func buildText(in *MessageIntent) (Content, error) {
	if in.Text == "" {
		return nil, callerError("intent", "has no text and no interactive content")
	}
	msg := &ExtendedTextMessage{Text: in.Text}
	if ci := in.normalizedContext(); !ci.isEmpty() {
		msg.ContextInfo = ci
	}
	return msg, nil
}

// Variant names the payload kind for logs and metrics.
func Variant(c Content) string {
	switch v := c.(type) {
	case *ListMessage:
		if v.ListType == ListTypeProductList {
			return "product_list"
		}
		return "list"
	case *ButtonsMessage:
		return "buttons"
	case *TemplateMessage:
		return "template"
	case *InteractiveMessage:
		return "interactive"
	case *ExtendedTextMessage:
		return "text"
	default:
		return "unknown"
	}
}
