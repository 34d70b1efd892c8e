// Package rx implements lazy, push-based streams and the operators used to
// compose them.
//
// An [Observable] is anything with an Observe method. Observe runs the
// producer until it completes (nil), fails (non-nil error) or the context is
// cancelled, handing each value to next. When next returns an error the
// producer stops and returns that error, which is how downstream operators
// such as [Take] end an observation early.
//
// Observe calls block. [Subscribe] runs one in the background and returns a
// [Subscription] whose Dispose method is the cancellation primitive:
//
//	sub := rx.Subscribe(ctx, rx.Debounce(searches, 300*time.Millisecond), rx.Observer[string]{
//		Next: func(term string) { fmt.Println("search", term) },
//	})
//	defer sub.Dispose()
//
// Values reach an observer one at a time. Operators that combine several
// sources ([Merge], [CombineLatest], [SwitchMap], [MergeMap]) serialise their
// emissions. [Subject] is a hot source that delivers to every attached
// observer in order, and [Share] multicasts a cold source with reference
// counting.
package rx
