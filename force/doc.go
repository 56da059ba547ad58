// Package force implements the authenticated fetch pipeline shared by every
// referral API call.
//
// # Architecture
//
//   - Request: immutable request description built from an instance URL,
//     a relative path, a method, an optional JSON body and ordered query items
//   - Client: attaches a bearer token, dispatches through a Transport,
//     classifies the response and re-authenticates at most once
//   - Decoder: JSON decoding with an ordered fallback chain of date layouts
//   - Classify: maps HTTP outcomes onto the Error taxonomy
//
// The token source and the transport are capabilities supplied by the
// caller through the TokenProvider and Transport interfaces. RestyTransport
// is a ready-made transport.
//
// # Usage
//
//	client, err := force.NewClient(authenticator, force.NewRestyTransport(30*time.Second),
//		force.WithLogger(logger),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	req, err := force.NewRequest("https://example.my.salesforce.com",
//		"/services/data/v60.0/referral-program/referral-event", http.MethodPost, body)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := force.Fetch[EventResult](ctx, client, req)
//
// # Error Handling
//
// Every failure is an *Error whose Kind is one of InvalidURL,
// AuthenticationNeeded, FunctionalityNotEnabled, ResponseUnsuccessful,
// RequestFailed or DecodingFailed. Use errors.Is with the package sentinels:
//
//	if errors.Is(err, force.ErrFunctionalityNotEnabled) {
//		// referral programs are not enabled for this org
//	}
package force
