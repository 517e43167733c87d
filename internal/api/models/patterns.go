package models

// Pattern models

type PatternListData struct {
	Patterns []string `json:"patterns" doc:"Pattern file names"`
	Count    int      `json:"count" example:"3" doc:"Number of patterns"`
}

type PatternListResponse struct {
	Body PatternListData
}

type PatternColor struct {
	Hex     string `json:"hex" example:"#ff8800" doc:"Color as #rrggbb"`
	Channel int    `json:"channel" minimum:"0" maximum:"255" example:"0" doc:"Light channel"`
}

type PatternFrame struct {
	Colors []PatternColor `json:"colors" doc:"Channel colors for this frame"`
}

type WritePatternRequest struct {
	Body struct {
		Frames []PatternFrame `json:"frames" minItems:"1" doc:"Frames in playback order"`
		Load   *bool          `json:"load,omitempty" doc:"Load the pattern after saving (default true)"`
	}
}

type WritePatternData struct {
	Name    string `json:"name" example:"0b6c5c0e-5d1f-4b8e-9d8b-7f1f0e7c2a10.txt" doc:"Generated pattern name"`
	Frames  int    `json:"frames" example:"4" doc:"Frames written"`
	Skipped int    `json:"skipped" example:"0" doc:"Colors dropped for invalid hex"`
	Loaded  bool   `json:"loaded" example:"true" doc:"Whether a load directive was queued"`
}

type WritePatternResponse struct {
	Body WritePatternData
}
