package prompt

// Consistency vocabulary. Any of these phrases appearing in a prompt is a
// descriptive modifier, not part of the subject, and is stripped when the
// subject key is derived.
var (
	StyleTags = []string{
		"oil painting", "watercolor", "3D render", "cinematic photo",
		"hyperrealistic", "anime style", "pixel art",
	}

	ArtistTags = []string{
		"by Greg Rutkowski", "by Artgerm", "by Studio Ghibli", "by Katsuhiro Otomo",
	}

	LightingTags = []string{
		"cinematic lighting", "dramatic shadows", "volumetric lighting",
		"soft natural light", "neon glow",
	}

	CameraTags = []string{
		"low angle shot", "high angle shot", "dutch angle", "bird's-eye view",
		"close-up portrait", "full body shot", "wide angle lens", "50mm prime lens",
	}

	QualityTags = []string{
		"masterpiece", "highly detailed", "8k resolution", "sharp focus",
		"best quality", "trending on Artstation",
	}

	SliderTags = []string{
		"hyperrealistic", "8k resolution", "intricate detail", "cinematic quality",
		"highly detailed", "smooth finish", "sharp focus", "artistic sketch",
		"simple details", "muted colors", "dominant color hsl",
	}
)

var subjectIdeas = []string{
	"A bustling futuristic city", "A serene mountain landscape",
	"A whimsical creature", "A valiant knight", "A cozy study",
}

// Suggestions returns the categorized prompt-builder vocabulary served to clients.
func Suggestions() map[string][]string {
	return map[string][]string{
		"subjects": subjectIdeas,
		"styles":   StyleTags,
		"artists":  ArtistTags,
		"lighting": LightingTags,
		"camera":   CameraTags,
		"quality":  QualityTags,
	}
}
