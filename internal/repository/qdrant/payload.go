package qdrant

import (
	pb "github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/vecrag/internal/domain/record"
)

const (
	keyContent = "content"
	keySource  = "source"
	keySeq     = "seq"
	keyPage    = "page"
	keyStartMS = "start_ms"
	keyEndMS   = "end_ms"
)

func toPoint(rec record.Record) *pb.PointStruct {
	p := rec.Payload()
	payload := map[string]*pb.Value{
		keyContent: stringValue(p.Text),
		keySource:  stringValue(p.Source),
		keySeq:     intValue(int64(p.Sequence)),
		keyPage:    intValue(int64(p.Page)),
	}
	if p.HasTime {
		payload[keyStartMS] = intValue(p.StartMS)
		payload[keyEndMS] = intValue(p.EndMS)
	}

	return &pb.PointStruct{
		Id: &pb.PointId{
			PointIdOptions: &pb.PointId_Uuid{Uuid: rec.ID()},
		},
		Vectors: &pb.Vectors{
			VectorsOptions: &pb.Vectors_Vector{
				Vector: &pb.Vector{Data: rec.Vector()},
			},
		},
		Payload: payload,
	}
}

// fromPayload reads a stored point; a time range is present only when both bounds are.
func fromPayload(m map[string]*pb.Value) record.Payload {
	p := record.Payload{
		Text:     m[keyContent].GetStringValue(),
		Source:   m[keySource].GetStringValue(),
		Sequence: int(m[keySeq].GetIntegerValue()),
		Page:     int(m[keyPage].GetIntegerValue()),
	}
	start, okStart := m[keyStartMS]
	end, okEnd := m[keyEndMS]
	if okStart && okEnd {
		p.HasTime = true
		p.StartMS = start.GetIntegerValue()
		p.EndMS = end.GetIntegerValue()
	}
	return p
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func intValue(n int64) *pb.Value {
	return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: n}}
}
