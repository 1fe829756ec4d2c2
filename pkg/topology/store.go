package topology

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/netscope-network/netscope/pkg/util"
)

// Redis key tables. Entries are hashes keyed "<TABLE>|<unique key>", so a
// rebuild's insert-or-replace lands on the same key and the store always
// reflects the latest parse.
const (
	tableNode         = "TOPOLOGY_NODE"
	tableLink         = "TOPOLOGY_LINK"
	tablePhysicalLink = "PHYSICAL_LINK"
	tableInterface    = "INTERFACE_CAPACITY"
	tableCDP          = "CDP_NEIGHBOR"
	tableMeta         = "TOPOLOGY_META"
)

// Store persists topology and interface records in Redis.
type Store struct {
	client *redis.Client
	ctx    context.Context
}

// NewStore creates a store client for the given Redis address.
func NewStore(addr string, db int) *Store {
	return &Store{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
		ctx: context.Background(),
	}
}

// Connect tests the connection.
func (s *Store) Connect() error {
	return s.client.Ping(s.ctx).Err()
}

// Close closes the connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// clearTable removes every entry of one table.
func (s *Store) clearTable(table string) error {
	keys, err := s.client.Keys(s.ctx, table+"|*").Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(s.ctx, keys...).Err()
}

// setJSON writes one record as a hash with a single json field plus the
// columns used for ad-hoc inspection.
func (s *Store) setJSON(table, key string, record interface{}, cols map[string]string) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	redisKey := fmt.Sprintf("%s|%s", table, key)
	fields := map[string]interface{}{"json": string(data)}
	for k, v := range cols {
		fields[k] = v
	}
	return s.client.HSet(s.ctx, redisKey, fields).Err()
}

// SaveTopology replaces the node, link, and physical-link tables with the
// given topology.
func (s *Store) SaveTopology(topo *Topology) error {
	for _, table := range []string{tableNode, tableLink, tablePhysicalLink} {
		if err := s.clearTable(table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, node := range topo.Nodes {
		cols := map[string]string{
			"name":      node.Name,
			"router_id": node.RouterID,
			"country":   node.Country,
			"type":      node.Type,
		}
		if err := s.setJSON(tableNode, node.Name, node, cols); err != nil {
			return fmt.Errorf("save node %s: %w", node.Name, err)
		}
	}

	for _, link := range topo.Links {
		cols := map[string]string{
			"source":      link.Source,
			"target":      link.Target,
			"cost":        strconv.Itoa(link.Cost),
			"cost_source": link.CostSource,
		}
		if err := s.setJSON(tableLink, link.ID, link, cols); err != nil {
			return fmt.Errorf("save link %s: %w", link.ID, err)
		}
	}

	for _, pl := range topo.PhysicalLinks {
		key := fmt.Sprintf("%s|%s|%s", pl.RouterA, pl.RouterB, pl.InterfaceA)
		cols := map[string]string{
			"router_a":      pl.RouterA,
			"router_b":      pl.RouterB,
			"is_asymmetric": strconv.FormatBool(pl.IsAsymmetric),
		}
		if err := s.setJSON(tablePhysicalLink, key, pl, cols); err != nil {
			return fmt.Errorf("save physical link %s: %w", pl.ID, err)
		}
	}

	mdJSON, err := json.Marshal(topo.Metadata)
	if err != nil {
		return err
	}
	if err := s.client.HSet(s.ctx, tableMeta+"|latest",
		"json", string(mdJSON), "timestamp", topo.Timestamp).Err(); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}

	util.Logger.Infof("topology saved: %d nodes, %d links, %d physical links",
		len(topo.Nodes), len(topo.Links), len(topo.PhysicalLinks))
	return nil
}

// SaveInterfaces replaces the interface-capacity and CDP tables.
func (s *Store) SaveInterfaces(set *InterfaceSet) error {
	for _, table := range []string{tableInterface, tableCDP} {
		if err := s.clearTable(table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, intf := range set.Interfaces {
		key := fmt.Sprintf("%s|%s", intf.Router, intf.Interface)
		cols := map[string]string{
			"router":         intf.Router,
			"interface":      intf.Interface,
			"capacity_class": intf.CapacityClass,
			"admin_status":   intf.AdminStatus,
		}
		if err := s.setJSON(tableInterface, key, intf, cols); err != nil {
			return fmt.Errorf("save interface %s/%s: %w", intf.Router, intf.Interface, err)
		}
	}

	for _, nbr := range set.CdpNeighbors {
		key := fmt.Sprintf("%s|%s|%s", nbr.LocalRouter, nbr.LocalInterface, nbr.RemoteRouter)
		cols := map[string]string{
			"local_router":  nbr.LocalRouter,
			"remote_router": nbr.RemoteRouter,
		}
		if err := s.setJSON(tableCDP, key, nbr, cols); err != nil {
			return fmt.Errorf("save cdp neighbor %s: %w", key, err)
		}
	}

	util.Logger.Infof("interface data saved: %d interfaces, %d cdp neighbors",
		len(set.Interfaces), len(set.CdpNeighbors))
	return nil
}

// loadTable unmarshals every record of one table's json field into out via
// the append callback.
func (s *Store) loadTable(table string, appendRecord func(data []byte) error) error {
	keys, err := s.client.Keys(s.ctx, table+"|*").Result()
	if err != nil {
		return err
	}
	for _, key := range keys {
		val, err := s.client.HGet(s.ctx, key, "json").Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return err
		}
		if err := appendRecord([]byte(val)); err != nil {
			return err
		}
	}
	return nil
}

// LoadTopology reads the stored topology back.
func (s *Store) LoadTopology() (*Topology, error) {
	topo := &Topology{Nodes: []Node{}, Links: []DirectionalLink{}, PhysicalLinks: []PhysicalLink{}}

	if err := s.loadTable(tableNode, func(data []byte) error {
		var n Node
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		topo.Nodes = append(topo.Nodes, n)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.loadTable(tableLink, func(data []byte) error {
		var l DirectionalLink
		if err := json.Unmarshal(data, &l); err != nil {
			return err
		}
		topo.Links = append(topo.Links, l)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.loadTable(tablePhysicalLink, func(data []byte) error {
		var pl PhysicalLink
		if err := json.Unmarshal(data, &pl); err != nil {
			return err
		}
		topo.PhysicalLinks = append(topo.PhysicalLinks, pl)
		return nil
	}); err != nil {
		return nil, err
	}

	if md, err := s.client.HGet(s.ctx, tableMeta+"|latest", "json").Result(); err == nil {
		json.Unmarshal([]byte(md), &topo.Metadata)
	}

	return topo, nil
}

// LoadInterfaces reads the stored interface records back.
func (s *Store) LoadInterfaces() (*InterfaceSet, error) {
	set := &InterfaceSet{Interfaces: []InterfaceCapacity{}, CdpNeighbors: []CdpNeighbor{}}

	if err := s.loadTable(tableInterface, func(data []byte) error {
		var intf InterfaceCapacity
		if err := json.Unmarshal(data, &intf); err != nil {
			return err
		}
		set.Interfaces = append(set.Interfaces, intf)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.loadTable(tableCDP, func(data []byte) error {
		var nbr CdpNeighbor
		if err := json.Unmarshal(data, &nbr); err != nil {
			return err
		}
		set.CdpNeighbors = append(set.CdpNeighbors, nbr)
		return nil
	}); err != nil {
		return nil, err
	}

	return set, nil
}
