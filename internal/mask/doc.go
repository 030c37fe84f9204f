// Package mask manages the sensor streaming masks.
//
// Two 32-bit masks tell the robot which sensor groups to include in each
// streamed packet. Group names map to bit patterns through two YAML tables
// (mask_list1.yaml and mask_list2.yaml) that are compiled in and may be
// overridden from a directory. The Accumulator combines enabled groups into
// the masks, and Order turns a set of active decoders into the field list the
// protocol demultiplexer consumes, in wire order.
package mask
