package editor

import (
	"github.com/sirupsen/logrus"

	"github.com/ankit-chaubey/exif-surgery/core"
)

// Edit writes req and then reads the destination back. A failed write gives
// OutcomeFailed with the error text as message. A write whose read-back
// timestamp differs from req.Timestamp gives OutcomeUnverified; that is a
// warning, not a failure. Both are logged at debug only; reporting them is
// left to the caller.
func (e *Editor) Edit(req Request) core.Report {
	r := core.Report{
		Destination: req.Destination,
		Expected:    req.Timestamp,
	}

	res, err := e.Write(req)
	if err != nil {
		e.log.WithError(err).WithField("dst", req.Destination).Debug("edit failed")
		r.Outcome = core.OutcomeFailed
		r.Message = err.Error()
		return r
	}
	r.Strategy = res.Strategy
	r.Message = res.Message
	r.Bytes = res.Bytes
	r.ExifBytes = res.ExifBytes

	got := e.ReadFields(req.Destination)
	r.Artist = got.Artist.Value
	r.Timestamp = got.DateTimeOriginal.Value
	r = verify(r)

	if r.Outcome == core.OutcomeUnverified {
		e.log.WithFields(logrus.Fields{
			"dst":      req.Destination,
			"expected": r.Expected,
			"actual":   r.Timestamp,
		}).Debug("timestamp did not verify after write")
	}
	return r
}

func verify(r core.Report) core.Report {
	if r.Timestamp == r.Expected {
		r.Outcome = core.OutcomeVerified
	} else {
		r.Outcome = core.OutcomeUnverified
	}
	return r
}
