package farside

import "github.com/yaoapp/xbridge/abi"

// Send delivers payload synchronously to every active registration of dest,
// in registration order. payload is only borrowed for the duration of the call.
func (l *Library) Send(dest string, payload []byte) abi.Status {
	if !l.resolver.resolve(dest) {
		return abi.StatusUnresolvable
	}
	targets, status := l.targets(dest)
	if status != abi.StatusOK {
		return status
	}
	if l.deliver(dest, payload, targets) == 0 {
		return abi.StatusNoRoute
	}
	return abi.StatusOK
}

// Post copies payload and delivers it asynchronously. Posts to the same
// destination are delivered in order; different destinations run concurrently
// up to MaxWorkers.
func (l *Library) Post(dest string, payload []byte) abi.Status {
	if !l.resolver.resolve(dest) {
		return abi.StatusUnresolvable
	}
	if _, status := l.targets(dest); status != abi.StatusOK {
		return status
	}

	buf := make([]byte, len(payload))
	copy(buf, payload)

	status := l.queues.enqueue(dest, buf, func(dest string, payload []byte) {
		targets, st := l.targets(dest)
		if st != abi.StatusOK {
			l.stats.dropped.Add(1)
			return
		}
		if l.deliver(dest, payload, targets) == 0 {
			l.stats.dropped.Add(1)
		}
	})
	if status == abi.StatusOK {
		l.stats.posted.Add(1)
	}
	return status
}

func (l *Library) deliver(dest string, payload []byte, targets []*handler) int {
	n := 0
	for _, h := range targets {
		if h.onSend(dest, payload) {
			n++
		}
	}
	l.stats.dispatched.Add(int64(n))
	l.log.Trace("deliver: dest=%s len=%d targets=%d delivered=%d", dest, len(payload), len(targets), n)
	return n
}
