package ingest

import (
	"strings"

	"github.com/sells-group/adintel-cli/internal/model"
	"github.com/sells-group/adintel-cli/pkg/adarchive"
)

// cardJoinSeparator joins card titles and bodies into single strings.
const cardJoinSeparator = " | "

// Normalize converts one raw archive record into the canonical ad record.
// Text fragments are extracted in declared order (title, body, CTA text,
// then each card's title and body), deduplicated case-insensitively, and
// joined into creative_text.
func Normalize(brand string, raw adarchive.RawAdRecord) model.NormalizedAdRecord {
	fragments := make([]string, 0, 3+2*len(raw.Cards))
	fragments = append(fragments, raw.Title, raw.Body, raw.CTAText)
	for _, card := range raw.Cards {
		fragments = append(fragments, card.Title, card.Body)
	}

	unique, hadDuplicate := Deduplicate(fragments)

	rec := model.NormalizedAdRecord{
		AdID:                 raw.ArchiveID,
		Brand:                brand,
		CreativeText:         strings.Join(unique, " "),
		TotalUniqueTextParts: len(unique),
		HasDuplicateContent:  hadDuplicate,
		ImageURLs:            []string{},
		VideoURLs:            []string{},
		CardTitles:           joinCardField(raw.Cards, func(c adarchive.Card) string { return c.Title }),
		CardBodies:           joinCardField(raw.Cards, func(c adarchive.Card) string { return c.Body }),
		Platforms:            raw.Platforms,
	}

	classifyMedia(&rec, raw)
	return rec
}

// classifyMedia derives media_type from which URL-bearing fields are
// actually populated. The source's display_format field over-classifies
// everything as video and is deliberately ignored.
//
// Precedence: video preview imagery wins, then image count. Video previews
// are filed under image assets so downstream visual analysis has something
// to look at; playable video URLs are never carried.
func classifyMedia(rec *model.NormalizedAdRecord, raw adarchive.RawAdRecord) {
	var previews []string
	for _, v := range raw.Videos {
		if v.PreviewImageURL != "" {
			previews = append(previews, v.PreviewImageURL)
		}
	}

	var images []string
	for _, img := range raw.Images {
		if img.URL != "" {
			images = append(images, img.URL)
		} else if img.ResizedURL != "" {
			images = append(images, img.ResizedURL)
		}
	}

	switch {
	case len(previews) > 0:
		rec.MediaType = model.MediaTypeVideo
		rec.ImageURLs = append(previews, images...)
	case len(images) > 1:
		rec.MediaType = model.MediaTypeCarousel
		rec.ImageURLs = images
	case len(images) == 1:
		rec.MediaType = model.MediaTypeImage
		rec.ImageURLs = images
	default:
		rec.MediaType = model.MediaTypeUnknown
	}
}

func joinCardField(cards []adarchive.Card, field func(adarchive.Card) string) string {
	var parts []string
	for _, c := range cards {
		if v := strings.TrimSpace(field(c)); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, cardJoinSeparator)
}
