package rpc

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ekisa-team/some/internal/pipeline"
	"github.com/ekisa-team/some/internal/service"
)

// waveformsToStruct builds an Infer request.
func waveformsToStruct(waveforms [][]float32) *structpb.Struct {
	list := make([]*structpb.Value, len(waveforms))
	for i, w := range waveforms {
		samples := make([]*structpb.Value, len(w))
		for j, s := range w {
			samples[j] = structpb.NewNumberValue(float64(s))
		}
		list[i] = structpb.NewListValue(&structpb.ListValue{Values: samples})
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldWaveforms: structpb.NewListValue(&structpb.ListValue{Values: list}),
	}}
}

// structToWaveforms reads an Infer request.
func structToWaveforms(in *structpb.Struct) ([][]float32, error) {
	v, ok := in.GetFields()[fieldWaveforms]
	if !ok {
		return nil, fmt.Errorf("missing field %q", fieldWaveforms)
	}
	items := v.GetListValue()
	if items == nil {
		return nil, fmt.Errorf("field %q must be a list", fieldWaveforms)
	}

	out := make([][]float32, len(items.GetValues()))
	for i, item := range items.GetValues() {
		samples := item.GetListValue()
		if samples == nil {
			return nil, fmt.Errorf("%s[%d] must be a list of numbers", fieldWaveforms, i)
		}
		w := make([]float32, len(samples.GetValues()))
		for j, s := range samples.GetValues() {
			n, ok := s.GetKind().(*structpb.Value_NumberValue)
			if !ok {
				return nil, fmt.Errorf("%s[%d][%d] is not a number", fieldWaveforms, i, j)
			}
			w[j] = float32(n.NumberValue)
		}
		out[i] = w
	}
	return out, nil
}

// resultsToValue encodes Infer results as a list of lists of objects.
func resultsToValue(results [][]pipeline.Result) *structpb.Value {
	items := make([]*structpb.Value, len(results))
	for i, item := range results {
		rs := make([]*structpb.Value, len(item))
		for j, r := range item {
			fields := make(map[string]*structpb.Value, len(r))
			for ch, vals := range r {
				nums := make([]*structpb.Value, len(vals))
				for k, v := range vals {
					nums[k] = structpb.NewNumberValue(v)
				}
				fields[ch] = structpb.NewListValue(&structpb.ListValue{Values: nums})
			}
			rs[j] = structpb.NewStructValue(&structpb.Struct{Fields: fields})
		}
		items[i] = structpb.NewListValue(&structpb.ListValue{Values: rs})
	}
	return structpb.NewListValue(&structpb.ListValue{Values: items})
}

// valueToResults decodes what resultsToValue produced.
func valueToResults(v *structpb.Value) ([][]pipeline.Result, error) {
	items := v.GetListValue()
	if items == nil {
		return nil, fmt.Errorf("field %q must be a list", fieldResults)
	}

	out := make([][]pipeline.Result, len(items.GetValues()))
	for i, item := range items.GetValues() {
		rs := item.GetListValue()
		if rs == nil {
			return nil, fmt.Errorf("%s[%d] must be a list", fieldResults, i)
		}
		out[i] = make([]pipeline.Result, len(rs.GetValues()))
		for j, r := range rs.GetValues() {
			obj := r.GetStructValue()
			if obj == nil {
				return nil, fmt.Errorf("%s[%d][%d] must be an object", fieldResults, i, j)
			}
			res := make(pipeline.Result, len(obj.GetFields()))
			for ch, vals := range obj.GetFields() {
				list := vals.GetListValue()
				if list == nil {
					return nil, fmt.Errorf("%s[%d][%d].%s must be a list", fieldResults, i, j, ch)
				}
				nums := make([]float64, len(list.GetValues()))
				for k, n := range list.GetValues() {
					nums[k] = n.GetNumberValue()
				}
				res[ch] = nums
			}
			out[i][j] = res
		}
	}
	return out, nil
}

// stateToStruct encodes a manager state for Describe.
func stateToStruct(s service.State) *structpb.Struct {
	fields := map[string]*structpb.Value{
		fieldStatus:  structpb.NewStringValue(string(s.Status)),
		fieldReloads: structpb.NewNumberValue(float64(s.Reloads)),
	}
	if s.Error != "" {
		fields[fieldError] = structpb.NewStringValue(s.Error)
	}
	if inst := s.Instance; inst != nil {
		obj := map[string]*structpb.Value{
			"id":         structpb.NewStringValue(inst.ID),
			"model_path": structpb.NewStringValue(inst.ModelPath),
			"model_cls":  structpb.NewStringValue(inst.ModelClass),
			"task_cls":   structpb.NewStringValue(inst.TaskID),
			"device":     structpb.NewStringValue(inst.Device),
			"timestep":   structpb.NewNumberValue(inst.Timestep),
		}
		if inst.LoadedAt != nil {
			obj["loaded_at"] = structpb.NewStringValue(inst.LoadedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
		}
		fields[fieldInstance] = structpb.NewStructValue(&structpb.Struct{Fields: obj})
	}
	return &structpb.Struct{Fields: fields}
}
