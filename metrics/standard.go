package metrics

// Pre-defined metrics for the vote-listening core. All metrics live in
// DefaultRegistry so they are globally accessible without passing a registry
// around. Names follow a dotted component.field convention; the Prometheus
// exporter rewrites the dots to underscores.

var (
	// ---- Listener (gossip ingest) metrics ----

	// ListenerVotesReceived counts gossip vote transactions pulled since the
	// last cursor position, before verification.
	ListenerVotesReceived = DefaultRegistry.Counter("listener.votes_received")
	// ListenerVotesVerified counts gossip votes that passed signature
	// verification and were forwarded downstream.
	ListenerVotesVerified = DefaultRegistry.Counter("listener.votes_verified")
	// ListenerVotesRejected counts gossip votes dropped for a bad signature
	// or a parse failure.
	ListenerVotesRejected = DefaultRegistry.Counter("listener.votes_rejected")
	// ListenerPollLatency records the duration of a single gossip poll, in
	// milliseconds.
	ListenerPollLatency = DefaultRegistry.Histogram("listener.poll_latency_ms")
	// ListenerCursor tracks the last gossip cursor position consumed.
	ListenerCursor = DefaultRegistry.Gauge("listener.cursor")

	// ---- Verifier (batch signature verification) metrics ----

	// VerifierBatchesProcessed counts signature-verification batches run.
	VerifierBatchesProcessed = DefaultRegistry.Counter("verifier.batches_processed")
	// VerifierVotesVerified counts individual votes that passed verification.
	VerifierVotesVerified = DefaultRegistry.Counter("verifier.votes_verified")
	// VerifierVotesFailed counts individual votes that failed verification.
	VerifierVotesFailed = DefaultRegistry.Counter("verifier.votes_failed")
	// VerifierFallbacks counts batches that fell back to per-entry
	// verification after a combined check failed.
	VerifierFallbacks = DefaultRegistry.Counter("verifier.fallbacks")

	// ---- Processor (vote-tracking / threshold detection) metrics ----

	// ProcessorVotesProcessed counts votes folded into the vote tracker,
	// across both gossip and replay sources.
	ProcessorVotesProcessed = DefaultRegistry.Counter("processor.votes_processed")
	// ProcessorDuplicateVotes counts replay votes recognised as duplicates of
	// a vote already recorded for the same voter and tip (slot, hash); gossip
	// duplicates are not counted.
	ProcessorDuplicateVotes = DefaultRegistry.Counter("processor.duplicate_votes")
	// ProcessorThresholdsCrossed counts VOTE_THRESHOLD crossings reported to
	// the replay stage, across all slots.
	ProcessorThresholdsCrossed = DefaultRegistry.Counter("processor.thresholds_crossed")
	// ProcessorDuplicatesConfirmed counts DUPLICATE_THRESHOLD crossings on a
	// slot hash, across all slots.
	ProcessorDuplicatesConfirmed = DefaultRegistry.Counter("processor.duplicates_confirmed")
	// ProcessorAuthorizationRejected counts gossip votes dropped because no
	// signer matched the tip epoch's authorized voter.
	ProcessorAuthorizationRejected = DefaultRegistry.Counter("processor.authorization_rejected")
	// ProcessorMalformedVotes counts gossip transactions that failed to
	// parse as a vote.
	ProcessorMalformedVotes = DefaultRegistry.Counter("processor.malformed_votes")
	// ProcessorOptimisticSlotsTracked tracks the current size of the
	// optimistic confirmation journal.
	ProcessorOptimisticSlotsTracked = DefaultRegistry.Gauge("processor.optimistic_slots_tracked")
	// ProcessorRootAdvanceLatency records the time spent advancing the
	// tracker to a new root, in milliseconds.
	ProcessorRootAdvanceLatency = DefaultRegistry.Histogram("processor.root_advance_latency_ms")
	// ProcessorConfirmLoopLatency records one iteration of the
	// listen-and-confirm loop, in milliseconds.
	ProcessorConfirmLoopLatency = DefaultRegistry.Histogram("processor.confirm_loop_latency_ms")

	// ---- Forwarder (leader-bank packet forwarding) metrics ----

	// ForwarderPacketsForwarded counts verified packets handed to the
	// current leader bank.
	ForwarderPacketsForwarded = DefaultRegistry.Counter("forwarder.packets_forwarded")
	// ForwarderPacketsDropped counts packets dropped because no leader bank
	// was within the forwarding horizon.
	ForwarderPacketsDropped = DefaultRegistry.Counter("forwarder.packets_dropped")
	// ForwarderBufferedVoters tracks the number of distinct voters with a
	// buffered latest vote awaiting forwarding.
	ForwarderBufferedVoters = DefaultRegistry.Gauge("forwarder.buffered_voters")
	// ForwarderForwardLatency records the time spent transmitting a batch to
	// the leader bank, in milliseconds.
	ForwarderForwardLatency = DefaultRegistry.Histogram("forwarder.forward_latency_ms")

	// ---- Vote tracker (epoch and stake bookkeeping) metrics ----

	// TrackerSlotsTracked tracks the number of slots currently held in the
	// vote tracker's slot map.
	TrackerSlotsTracked = DefaultRegistry.Gauge("tracker.slots_tracked")
	// TrackerEpochsTracked tracks the number of epochs with a resolved
	// authorized-voter map.
	TrackerEpochsTracked = DefaultRegistry.Gauge("tracker.epochs_tracked")
	// TrackerGossipOnlyStake tracks the stake credited on each voter's first
	// gossip sighting of a slot (whether or not replay saw the voter before
	// or after), summed across tracked slots.
	TrackerGossipOnlyStake = DefaultRegistry.Gauge("tracker.gossip_only_stake")
	// TrackerLeaderScheduleEpoch tracks the highest leader-schedule epoch
	// observed at root progress, whether or not its authorized-voter map
	// could be installed.
	TrackerLeaderScheduleEpoch = DefaultRegistry.Gauge("tracker.leader_schedule_epoch")
	// TrackerCurrentEpoch tracks the highest epoch the root has crossed
	// into.
	TrackerCurrentEpoch = DefaultRegistry.Gauge("tracker.current_epoch")
)
