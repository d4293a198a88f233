package signal

// Inbound event types. The dispatch switch in io.go is the closed set of
// everything a client may send after the handshake.
const (
	evCallInitiate = "call-initiate"
	evCallAccept   = "call-accept"
	evCallReject   = "call-reject"
	evCallEnd      = "call-end"
	evOffer        = "webrtc-offer"
	evAnswer       = "webrtc-answer"
	evICECandidate = "ice-candidate"
	evPing         = "ping"
	evWhoAmI       = "whoami"
)

// Outbound event types.
const (
	evIncomingCall = "incoming-call"
	evCallSent     = "call-sent"
	evCallAccepted = "call-accepted"
	evCallRejected = "call-rejected"
	evCallEnded    = "call-ended"
	evCallError    = "call-error"
	evPong         = "pong"
)
