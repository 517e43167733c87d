package models

// Light control models

type ControlRequest struct {
	Body struct {
		Mode    string `json:"mode" enum:"off,on,load" example:"load" doc:"off stops the animation, on resumes it, load swaps the pattern"`
		Pattern string `json:"pattern,omitempty" example:"rainbow.txt" doc:"Pattern name, required for load"`
	}
}

type StateRequest struct {
	Body struct {
		On bool `json:"on" example:"true" doc:"Turn the lights on or off directly, holding the animation"`
	}
}

type ColorRequest struct {
	Body struct {
		Color string `json:"color" enum:"red,green,blue" example:"red" doc:"Basic color to show, holding the animation"`
	}
}

type DirectiveData struct {
	Directive string `json:"directive" example:"load(rainbow.txt)" doc:"Directive queued for the effect loop"`
}

type DirectiveResponse struct {
	Body DirectiveData
}

// Status models

type DeviceStatus struct {
	Kind      string `json:"kind" example:"serial" doc:"Driver kind"`
	Device    string `json:"device" example:"/dev/ttyACM0" doc:"Device path or address"`
	Connected bool   `json:"connected" example:"true" doc:"Whether a handle is open"`
	LastError string `json:"last_error,omitempty" doc:"Reason for the last disconnect"`
}

type PatternLoadStatus struct {
	Name   string `json:"name" example:"rainbow.txt" doc:"Last pattern requested"`
	Frames int    `json:"frames" example:"12" doc:"Frames in the loaded pattern"`
	Error  string `json:"error,omitempty" doc:"Load failure, empty on success"`
}

type StatusData struct {
	Running   bool               `json:"running" example:"true" doc:"Whether the animation is playing"`
	Frame     uint8              `json:"frame" example:"3" doc:"Current frame index"`
	Frames    int                `json:"frames" example:"12" doc:"Frames in the active pattern"`
	Pattern   string             `json:"pattern" example:"init.txt" doc:"Active pattern name"`
	Device    DeviceStatus       `json:"device" doc:"Device connection state"`
	LastLoad  *PatternLoadStatus `json:"last_load,omitempty" doc:"Outcome of the most recent load"`
	UpdatedAt string             `json:"updated_at,omitempty" example:"2025-01-27T10:30:00Z" doc:"Time of the last state event"`
}

type StatusResponse struct {
	Body StatusData
}
