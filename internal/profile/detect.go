package profile

// podcastMinDurationSec is the duration above which unlabelled content is treated as long form.
const podcastMinDurationSec = 60

// Context carries the hints available to auto-detection. Zero values mean "not supplied".
type Context struct {
	Profile         string
	Category        string
	HasMusic        bool
	Urgent          bool
	DurationSeconds float64
}

// AutoDetect resolves a profile from context. First match wins:
// explicit profile, explicit category, music, urgency, long duration, then message.
// Explicit signals only match when they resolve to a known profile or category.
func (c *Catalog) AutoDetect(ctx Context) Profile {
	if ctx.Profile != "" {
		if key, ok := ParseKey(ctx.Profile); ok {
			return c.Get(key)
		}
	}

	if ctx.Category != "" {
		if key, ok := c.category(ctx.Category); ok {
			return c.Get(key)
		}
	}

	switch {
	case ctx.HasMusic:
		return c.Get(Jingle)
	case ctx.Urgent:
		return c.Get(Emergency)
	case ctx.DurationSeconds > podcastMinDurationSec:
		return c.Get(Podcast)
	}

	return c.Get(Message)
}
