package template

import "gopkg.in/yaml.v3"

// omap is an insertion-ordered mapping. CloudFormation documents are
// rendered from it so that identical specs always produce byte-identical
// templates; Go maps would randomize key order.
type omap struct {
	keys []string
	vals map[string]any
}

// obj builds an ordered mapping from alternating key/value arguments.
func obj(kv ...any) *omap {
	m := &omap{vals: make(map[string]any, len(kv)/2)}
	for i := 0; i < len(kv); i += 2 {
		m.set(kv[i].(string), kv[i+1])
	}
	return m
}

func (m *omap) set(key string, value any) *omap {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = value
	return m
}

func (m *omap) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, key := range m.keys {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(m.vals[key]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, keyNode, valueNode)
	}
	return node, nil
}
