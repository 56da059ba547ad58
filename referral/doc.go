// Package referral implements the referral program operations on top of
// the force fetch pipeline.
//
// # Operations
//
//   - Enroll: enroll a member in a promotion, identified by membership
//     number (ByMembership), contact ID (ByContact) or as a brand new member
//     (NewMember)
//   - SubmitEvent and Refer: record Enrollment, Purchase or Refer events
//   - SubmitEvents: submit many events with bounded concurrency
//
// Every operation validates its input before building a request. Invalid
// input fails with ErrInvalidInput and nothing is sent. Failures from the
// API surface as *force.Error values.
//
// # Usage
//
//	mgr, err := referral.NewManager(client, "https://example.my.salesforce.com", "Friends",
//		referral.WithVersion("60.0"),
//		referral.WithLogger(logger),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := mgr.EnrollByContactID(ctx, "SUMMER", "003xx000004TmiQ")
//	if errors.Is(err, force.ErrAuthenticationNeeded) {
//		// sign in again
//	}
//
//	_, err = mgr.Refer(ctx, res.PromotionReferralCode, "friend@example.com")
package referral
